package assemble

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"ai-recall-be/internal/entity"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/store"

	"github.com/google/uuid"
)

func newTestAssembler(previews *store.PreviewStore) *Assembler {
	return NewAssembler(previews, "http://localhost:3000/", log.New(io.Discard, "", 0))
}

func TestDedupChatLines(t *testing.T) {
	tests := []struct {
		name string
		docs []run.RetrievedDocument
		want []ChatLine
	}{
		{
			"overlapping chunks collapse",
			[]run.RetrievedDocument{
				{Content: "user: what broke\nassistant: the cron job"},
				{Content: "assistant: the cron job\nuser: since when"},
			},
			[]ChatLine{
				{Role: "user", Content: "what broke"},
				{Role: "assistant", Content: "the cron job"},
				{Role: "user", Content: "since when"},
			},
		},
		{
			"chunk noise dropped",
			[]run.RetrievedDocument{
				{Content: "user: hello\n---\nnot a chat line\nUser: uppercase role\nuser:missing space\nuser:   "},
			},
			[]ChatLine{
				{Role: "user", Content: "hello"},
			},
		},
		{
			"same content different role kept",
			[]run.RetrievedDocument{
				{Content: "user: sounds good\nassistant: sounds good"},
			},
			[]ChatLine{
				{Role: "user", Content: "sounds good"},
				{Role: "assistant", Content: "sounds good"},
			},
		},
		{
			"empty input",
			nil,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupChatLines(tt.docs)
			if len(got) != len(tt.want) {
				t.Fatalf("DedupChatLines() returned %d lines, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRenderChatLines(t *testing.T) {
	lines := []ChatLine{
		{Role: "user", Content: "what broke"},
		{Role: "assistant", Content: "the cron job"},
		{Role: "user", Content: "since when"},
		{Role: "assistant", Content: "tuesday"},
	}

	want := "user: what broke\nassistant: the cron job\n\nuser: since when\nassistant: tuesday"
	if got := RenderChatLines(lines); got != want {
		t.Errorf("RenderChatLines() = %q, want %q", got, want)
	}
}

func TestBuildMemoryBlock(t *testing.T) {
	tests := []struct {
		name     string
		chatText string
		videos   int
		want     string
	}{
		{"nothing to say", "", 0, ""},
		{
			"chat only",
			"user: hello",
			0,
			"<memory>\nuser: hello\n</memory>",
		},
		{
			"single recording",
			"",
			1,
			"<memory>\n1 screen recording selected by the user for visual reasoning\n</memory>",
		},
		{
			"chat and recordings",
			"user: hello",
			2,
			"<memory>\nuser: hello\n2 screen recordings selected by the user for visual reasoning\n</memory>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildMemoryBlock(tt.chatText, tt.videos); got != tt.want {
				t.Errorf("BuildMemoryBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMintCandidates(t *testing.T) {
	previews := store.NewPreviewStore(time.Minute)
	a := newTestAssembler(previews)

	sets := make([]VideoSetSequence, 5)
	for i := range sets {
		sets[i] = VideoSetSequence{
			SetID:              uuid.New(),
			Title:              "recording",
			Similarity:         0.5,
			RepresentativeClip: uuid.New(),
			DurationMs:         30000,
		}
	}

	candidates := a.mintCandidates(sets, 3)
	if len(candidates) != 3 {
		t.Fatalf("mintCandidates() returned %d candidates, want cap of 3", len(candidates))
	}

	seen := make(map[string]bool)
	for i, c := range candidates {
		if c.VideoSetID != sets[i].SetID {
			t.Errorf("candidate[%d].VideoSetID = %s, want %s", i, c.VideoSetID, sets[i].SetID)
		}
		if c.PreviewHandle == "" {
			t.Fatalf("candidate[%d] has no preview handle", i)
		}
		if seen[c.PreviewHandle] {
			t.Errorf("candidate[%d] reuses preview handle %s", i, c.PreviewHandle)
		}
		seen[c.PreviewHandle] = true

		clipID, ok := previews.Resolve(c.PreviewHandle)
		if !ok {
			t.Fatalf("candidate[%d] handle does not resolve", i)
		}
		if clipID != sets[i].RepresentativeClip {
			t.Errorf("candidate[%d] handle resolves to clip %s, want %s", i, clipID, sets[i].RepresentativeClip)
		}

		wantURL := "http://localhost:3000/api/media/v1/preview/" + c.PreviewHandle
		if c.PreviewURL != wantURL {
			t.Errorf("candidate[%d].PreviewURL = %q, want %q", i, c.PreviewURL, wantURL)
		}
	}
}

func TestMintCandidatesEmpty(t *testing.T) {
	a := newTestAssembler(store.NewPreviewStore(time.Minute))

	if got := a.mintCandidates(nil, 3); got != nil {
		t.Errorf("mintCandidates(nil) = %v, want nil", got)
	}
	if got := a.mintCandidates([]VideoSetSequence{{SetID: uuid.New()}}, 0); got != nil {
		t.Errorf("mintCandidates() with zero cap = %v, want nil", got)
	}
}

func TestAssembleChatOnly(t *testing.T) {
	a := newTestAssembler(store.NewPreviewStore(time.Minute))

	docs := []run.RetrievedDocument{
		{Content: "user: where is the invoice\nassistant: in the billing tab"},
	}

	assembly, err := a.Assemble(context.Background(), nil, docs, nil, 18)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(assembly.ChatLines) != 2 {
		t.Errorf("ChatLines = %d entries, want 2", len(assembly.ChatLines))
	}
	if !strings.Contains(assembly.ChatText, "billing tab") {
		t.Errorf("ChatText = %q, want the assistant line included", assembly.ChatText)
	}
	if len(assembly.Candidates) != 0 {
		t.Errorf("Candidates = %d entries, want 0 without recordings", len(assembly.Candidates))
	}
}

func TestPickRepresentative(t *testing.T) {
	designated := uuid.New()
	first := uuid.New()
	other := uuid.New()

	tests := []struct {
		name        string
		representer *uuid.UUID
		clips       []uuid.UUID
		want        uuid.UUID
	}{
		{"designated clip survived", &designated, []uuid.UUID{first, designated}, designated},
		{"designated clip dropped", &designated, []uuid.UUID{first, other}, first},
		{"no designation", nil, []uuid.UUID{first, other}, first},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := &entity.VideoSet{RepresentativeClipId: tt.representer}
			if got := pickRepresentative(set, tt.clips); got != tt.want {
				t.Errorf("pickRepresentative() = %s, want %s", got, tt.want)
			}
		})
	}
}

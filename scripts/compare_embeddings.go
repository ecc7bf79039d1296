//go:build ignore

package main

import (
	"fmt"
	"log"
	"math"

	"ai-recall-be/internal/config"
	"ai-recall-be/internal/constant"
	"ai-recall-be/pkg/embedding"
)

// CosineSimilarity calculates similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func main() {
	cfg := config.Load()

	// 1. Initialize Providers
	fmt.Println("--- Initializing Providers ---")
	chatModel := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.ChatEmbeddingModel)
	videoModel := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.VideoEmbeddingModel)

	// 2. Define Test Cases
	text1 := "user: what did the billing dashboard show\nassistant: three overdue invoices" // Original
	text2 := "which invoices were overdue on the billing screen"                            // Semantically similar
	text3 := "recipe for sourdough bread starter"                                           // Completely different

	fmt.Println("\n--- Generating Embeddings ---")

	// Helper to generate and print info
	generate := func(name string, p embedding.EmbeddingProvider, t1, t2, t3 string) ([]float32, []float32, []float32) {
		fmt.Printf("\n[%s] Generating...\n", name)

		v1, err := p.Generate(t1, embedding.TaskRetrievalDocument)
		if err != nil {
			log.Printf("Error %s (Text 1): %v", name, err)
			return nil, nil, nil
		}
		fmt.Printf("[%s] Text 1 Dimensions: %d\n", name, len(v1.Embedding.Values))

		v2, err := p.Generate(t2, embedding.TaskRetrievalQuery)
		if err != nil {
			log.Printf("Error %s (Text 2): %v", name, err)
			return nil, nil, nil
		}

		v3, err := p.Generate(t3, embedding.TaskRetrievalQuery)
		if err != nil {
			log.Printf("Error %s (Text 3): %v", name, err)
			return nil, nil, nil
		}

		return v1.Embedding.Values, v2.Embedding.Values, v3.Embedding.Values
	}

	// 3. Run the chat memory model
	c1, c2, c3 := generate("CHAT", chatModel, text1, text2, text3)

	// 4. Run the visual model (text side of the shared space)
	v1, v2, v3 := generate("VIDEO", videoModel, text1, text2, text3)

	// 5. Compare Similarity
	fmt.Println("\n--- Semantic Similarity Comparison ---")
	fmt.Println("(Higher is better, 1.0 = identical)")

	if c1 != nil && c2 != nil && c3 != nil {
		fmt.Printf("\n[CHAT] (expected %d dims)\n", constant.ChatEmbeddingDimensions)
		fmt.Printf("Similarity (Text 1 vs Text 2 - Similar): %.4f\n", CosineSimilarity(c1, c2))
		fmt.Printf("Similarity (Text 1 vs Text 3 - Different): %.4f\n", CosineSimilarity(c1, c3))
	}

	if v1 != nil && v2 != nil && v3 != nil {
		fmt.Printf("\n[VIDEO] (expected %d dims)\n", constant.VideoEmbeddingDimensions)
		fmt.Printf("Similarity (Text 1 vs Text 2 - Similar): %.4f\n", CosineSimilarity(v1, v2))
		fmt.Printf("Similarity (Text 1 vs Text 3 - Different): %.4f\n", CosineSimilarity(v1, v3))
	}

	fmt.Println("\n--- Conclusion ---")
	fmt.Println("Both models must rank Text 1 & 2 above Text 1 & 3, and dimensions must match the vector columns.")
}

// Package rag implements the retrieval-augmented generation pipeline:
// question embedding, top-k chunk retrieval, context assembly, citation
// construction and answer generation, plus the document indexing path.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/drivechat/drivechat/internal/vector"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// excerptLength caps citation excerpts.
const excerptLength = 200

// FallbackAnswer is streamed or returned when no relevant chunks exist.
const FallbackAnswer = "I don't have any indexed documents to answer from yet. " +
	"Please index some documents first, then ask again."

// systemPrompt instructs the model to stay grounded in the retrieved
// context.
const systemPrompt = `You are a helpful assistant that answers questions using only the provided document context.

Rules:
- Answer strictly from the context below. If the context does not contain the answer, say so plainly.
- Cite the sources you used by their [Source N] labels.
- If the question asks for medical, legal, or financial advice, add a short caveat that the documents are informational and the user should consult a qualified professional.
- Keep answers concise.`

// Searcher retrieves the most similar chunks for a query embedding.
// *vector.Memory satisfies this.
type Searcher interface {
	Search(query []float32, k int) []vector.Result
}

// Citation points an answer back at a retrieved chunk.
type Citation struct {
	Source     string  `json:"source"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
}

// Answer is a complete non-streaming response.
type Answer struct {
	Text      string
	Citations []Citation
}

// Event is one element of the streaming answer sequence: a citations
// event (Citations non-nil, emitted exactly once, first) or a token
// event (Token non-empty).
type Event struct {
	Citations []Citation
	Token     string
}

// Engine answers questions over the indexed document corpus.
type Engine struct {
	g        *genkit.Genkit
	embedder ai.Embedder
	store    Searcher
	model    string
	topK     int
	logger   *slog.Logger
}

// NewEngine creates an Engine. topK values below 1 fall back to
// DefaultTopK.
func NewEngine(g *genkit.Genkit, embedder ai.Embedder, store Searcher, model string, topK int, logger *slog.Logger) *Engine {
	if topK < 1 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		g:        g,
		embedder: embedder,
		store:    store,
		model:    model,
		topK:     topK,
		logger:   logger,
	}
}

// Answer runs the full pipeline and returns the complete answer.
// Zero retrieved chunks is the fallback branch, not an error.
func (e *Engine) Answer(ctx context.Context, question string) (Answer, error) {
	results, err := e.retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	if len(results) == 0 {
		e.logger.Debug("no chunks retrieved, returning fallback", "question_length", len(question))
		return Answer{Text: FallbackAnswer, Citations: []Citation{}}, nil
	}

	response, err := genkit.Generate(ctx, e.g,
		ai.WithModelName(e.model),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(buildPrompt(question, results)),
	)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}

	return Answer{Text: response.Text(), Citations: buildCitations(results)}, nil
}

// AnswerStream runs the pipeline and emits events in order: one
// citations event, then token events. The fallback answer is emitted as
// single-character tokens so callers see identical framing.
func (e *Engine) AnswerStream(ctx context.Context, question string, emit func(Event) error) error {
	results, err := e.retrieve(ctx, question)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		if err := emit(Event{Citations: []Citation{}}); err != nil {
			return err
		}
		for _, r := range FallbackAnswer {
			if err := emit(Event{Token: string(r)}); err != nil {
				return err
			}
		}
		return nil
	}

	if err := emit(Event{Citations: buildCitations(results)}); err != nil {
		return err
	}

	_, err = genkit.Generate(ctx, e.g,
		ai.WithModelName(e.model),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(buildPrompt(question, results)),
		ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			if text == "" {
				return nil
			}
			return emit(Event{Token: text})
		}),
	)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	return nil
}

// retrieve embeds the question and searches the store.
func (e *Engine) retrieve(ctx context.Context, question string) ([]vector.Result, error) {
	embedding, err := embedText(ctx, e.embedder, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results := e.store.Search(embedding, e.topK)
	e.logger.Debug("retrieved chunks", "count", len(results), "top_k", e.topK)
	return results, nil
}

// buildPrompt assembles the labeled context block followed by the
// question.
func buildPrompt(question string, results []vector.Result) string {
	var sb strings.Builder
	sb.WriteString("Context:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "[Source %d: %s]\n%s\n\n", i+1, r.Chunk.Metadata["fileName"], r.Chunk.Content)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

// buildCitations derives citations from retrieval results. Confidence is
// the retrieval similarity clamped to [0, 1].
func buildCitations(results []vector.Result) []Citation {
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, Citation{
			Source:     r.Chunk.Metadata["fileName"],
			Excerpt:    excerpt(r.Chunk.Content),
			Confidence: clamp01(r.Similarity),
			Page:       r.Chunk.Index + 1,
		})
	}
	return citations
}

// excerpt truncates content to the citation excerpt length, adding an
// ellipsis marker only if truncated.
func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return content
	}
	return string(runes[:excerptLength]) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// embedText embeds a single text and returns its vector.
func embedText(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no embeddings")
	}
	return resp.Embeddings[0].Embedding, nil
}

// Package chunker splits extracted text into fixed-size overlapping
// windows. Splitting is a pure function of the input text and options,
// re-running it over the same text always yields the same chunks.
package chunker

import (
	"fmt"
)

const (
	DefaultChunkSize    = 500
	DefaultOverlap      = 50
	DefaultMinChunkSize = 100
	DefaultMaxChunkSize = 1000
)

type Options struct {
	ChunkSize    int `toml:"chunk_size"`
	Overlap      int `toml:"overlap"`
	MinChunkSize int `toml:"min_chunk_size"`
	MaxChunkSize int `toml:"max_chunk_size"`
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:    DefaultChunkSize,
		Overlap:      DefaultOverlap,
		MinChunkSize: DefaultMinChunkSize,
		MaxChunkSize: DefaultMaxChunkSize,
	}
}

func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", o.ChunkSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", o.Overlap)
	}
	if o.Overlap >= o.ChunkSize {
		return fmt.Errorf("overlap %d must be smaller than chunk size %d", o.Overlap, o.ChunkSize)
	}
	if o.MinChunkSize < 0 {
		return fmt.Errorf("min chunk size must not be negative, got %d", o.MinChunkSize)
	}
	if o.MinChunkSize > o.ChunkSize {
		return fmt.Errorf("min chunk size %d must not exceed chunk size %d", o.MinChunkSize, o.ChunkSize)
	}
	if o.MaxChunkSize > 0 && o.MaxChunkSize < o.ChunkSize {
		return fmt.Errorf("max chunk size %d must not be smaller than chunk size %d", o.MaxChunkSize, o.ChunkSize)
	}
	return nil
}

// Chunk is one window over the source text. Start and End are rune
// offsets, End exclusive, so Text == runes[Start:End].
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Split cuts text into windows of ChunkSize runes advancing by
// ChunkSize-Overlap. A trailing window shorter than MinChunkSize is
// always merged into the previous chunk instead of being emitted on its
// own; a merged final chunk is the one place a chunk may exceed
// MaxChunkSize.
func Split(text string, opts Options) ([]Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	total := len(runes)

	if total <= opts.ChunkSize {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: total}}, nil
	}

	step := opts.ChunkSize - opts.Overlap

	var chunks []Chunk
	for start := 0; start < total; start += step {
		end := start + opts.ChunkSize
		if end > total {
			end = total
		}

		// only the final window can be undersized, since MinChunkSize
		// never exceeds ChunkSize
		size := end - start
		if size < opts.MinChunkSize && len(chunks) > 0 {
			prev := &chunks[len(chunks)-1]
			prev.End = end
			prev.Text = string(runes[prev.Start:end])
			break
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}

// Package tokens estimates prompt sizes for usage records.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
)

// Estimator counts tokens in text.
type Estimator interface {
	Count(text string) int
}

// CharEstimator divides the character count by config.TokenEstimateRatio.
type CharEstimator struct{}

// Count implements Estimator.
func (CharEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len([]rune(text)) / config.TokenEstimateRatio
	if n == 0 {
		return 1
	}
	return n
}

// TiktokenEstimator loads its encoding lazily on first use and falls back
// to CharEstimator if it cannot.
type TiktokenEstimator struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewTiktokenEstimator creates an estimator for the named encoding.
func NewTiktokenEstimator(encoding string) *TiktokenEstimator {
	if encoding == "" {
		encoding = config.DefaultTokenEncoding
	}
	return &TiktokenEstimator{encoding: encoding}
}

// Count implements Estimator.
func (e *TiktokenEstimator) Count(text string) int {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding(e.encoding)
		if err != nil {
			log.Warn().Err(err).Str("encoding", e.encoding).Msg("tiktoken unavailable, estimating by characters")
			return
		}
		e.enc = enc
	})
	if e.enc == nil {
		return CharEstimator{}.Count(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

// New picks an estimator by name ("chars" or "tiktoken").
func New(cfg config.TokensConfig) Estimator {
	if cfg.Estimator == "tiktoken" {
		return NewTiktokenEstimator(cfg.Encoding)
	}
	return CharEstimator{}
}

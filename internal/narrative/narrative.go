// Package narrative produces the human-readable credit report that accompanies a score.
package narrative

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"credshield-go/internal/metrics"
	"credshield-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const defaultNativeSymbol = "BNB"

// Request carries everything a report is written from.
type Request struct {
	Snapshot     models.ActivitySnapshot
	Result       models.ScoreResult
	NativeSymbol string
}

func (r Request) symbol() string {
	if r.NativeSymbol == "" {
		return defaultNativeSymbol
	}
	return r.NativeSymbol
}

// Generator writes a narrative credit report.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Report asks gen for a narrative and degrades to Fallback on any failure or an empty answer.
// The second return value reports whether the fallback was used.
func Report(ctx context.Context, gen Generator, req Request) (string, bool) {
	if gen != nil {
		text, err := gen.Generate(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, false
		}
		if err == nil {
			err = fmt.Errorf("empty report")
		}
		zap.L().Warn("Narrative generation failed, using fallback report",
			zap.String("address", req.Result.Address.Hex()),
			zap.Error(err))
	}
	metrics.NarrativeFallbacks.Inc()
	return Fallback(req), true
}

// Fingerprint is the SHA-256 digest of a report, stored alongside the score.
func Fingerprint(text string) common.Hash {
	return common.Hash(sha256.Sum256([]byte(text)))
}

// ShortAddress renders 0x1234…abcd.
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

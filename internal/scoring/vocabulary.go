package scoring

import (
	"math"
	"sort"
)

// MinVocabularyResponses is the fewest vocabulary answers a size estimate
// is reported for.
const MinVocabularyResponses = 14

// pseudowordThreshold is the pseudoword accuracy at or above which the
// estimate is trusted.
const pseudowordThreshold = 0.66

// Confidence grades a vocabulary size estimate by pseudoword accuracy.
type Confidence string

const (
	ConfidenceHigh    Confidence = "High"
	ConfidenceLow     Confidence = "Low"
	ConfidenceUnknown Confidence = "Unknown"
)

// VocabResponse is one answered vocabulary item.
type VocabResponse struct {
	// FrequencyBand names the word-frequency band, e.g. "1k" or "2000-5000".
	FrequencyBand string
	// BandSize is the number of word families the band represents.
	BandSize     int
	IsPseudoword bool
	Correct      bool
}

// BandResult is the tally for one frequency band.
type BandResult struct {
	Band     string  `json:"band"`
	BandSize int     `json:"band_size"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percentage"`
	Estimate float64 `json:"estimate"`
}

// VocabularyReport is a Nation-style vocabulary size estimate.
type VocabularyReport struct {
	Size              int          `json:"vocabulary_size"`
	Bands             []BandResult `json:"bands"`
	PseudowordCorrect int          `json:"pseudoword_correct"`
	PseudowordTotal   int          `json:"pseudoword_total"`
	PseudowordPercent float64      `json:"pseudoword_accuracy"`
	Confidence        Confidence   `json:"confidence"`
}

// Vocabulary estimates vocabulary size as Σ (correct/tested) × band size
// over real-word frequency bands. Responses without a band or band size do
// not contribute to the size. It returns false when fewer than
// MinVocabularyResponses responses are given.
func Vocabulary(responses []VocabResponse) (*VocabularyReport, bool) {
	if len(responses) < MinVocabularyResponses {
		return nil, false
	}

	report := &VocabularyReport{Confidence: ConfidenceUnknown}
	byBand := map[string]*BandResult{}

	for _, r := range responses {
		if r.IsPseudoword {
			report.PseudowordTotal++
			if r.Correct {
				report.PseudowordCorrect++
			}
			continue
		}
		if r.FrequencyBand == "" || r.BandSize <= 0 {
			continue
		}
		b, ok := byBand[r.FrequencyBand]
		if !ok {
			// The first response seen for a band fixes its size.
			b = &BandResult{Band: r.FrequencyBand, BandSize: r.BandSize}
			byBand[r.FrequencyBand] = b
		}
		b.Total++
		if r.Correct {
			b.Correct++
		}
	}

	total := 0.0
	for _, b := range byBand {
		ratio := float64(b.Correct) / float64(b.Total)
		b.Estimate = ratio * float64(b.BandSize)
		b.Percent = round1(ratio * 100)
		total += b.Estimate
		report.Bands = append(report.Bands, *b)
	}
	sort.Slice(report.Bands, func(i, j int) bool {
		if report.Bands[i].BandSize != report.Bands[j].BandSize {
			return report.Bands[i].BandSize < report.Bands[j].BandSize
		}
		return report.Bands[i].Band < report.Bands[j].Band
	})
	report.Size = int(total)

	if report.PseudowordTotal > 0 {
		acc := float64(report.PseudowordCorrect) / float64(report.PseudowordTotal)
		report.PseudowordPercent = round1(acc * 100)
		if acc >= pseudowordThreshold {
			report.Confidence = ConfidenceHigh
		} else {
			report.Confidence = ConfidenceLow
		}
	}

	return report, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

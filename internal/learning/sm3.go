package learning

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	// QualityMastered and QualityReviewLater are the only grades a study session produces.
	QualityMastered    = 5
	QualityReviewLater = 2

	minQuality     = 0
	maxQuality     = 5
	passingQuality = 3
)

// ErrInvalidQuality is returned for grades outside 0..5.
var ErrInvalidQuality = errors.New("invalid quality")

// Schedule is the outcome of one graded review.
type Schedule struct {
	Interval       int
	EaseFactor     float64
	Repetitions    int
	Quality        int
	NextReviewDate time.Time
	LastReviewDate time.Time
}

// UpdateEaseFactor applies the SM-3 ease delta for quality and clamps the result at MinEaseFactor.
func UpdateEaseFactor(ef float64, quality int) float64 {
	if ef == 0 {
		ef = DefaultEaseFactor
	}
	q := float64(maxQuality - quality)
	return math.Max(MinEaseFactor, ef+(0.1-q*(0.08+q*0.02)))
}

// ComputeNext grades rec with quality at now.
// A failing grade (< 3) resets repetitions and brings the concept back tomorrow.
// Passing grades walk the interval through 1, 6, then previous interval times the new ease.
func ComputeNext(rec Record, quality int, now time.Time) (Schedule, error) {
	if quality < minQuality || quality > maxQuality {
		return Schedule{}, fmt.Errorf("quality %d: %w", quality, ErrInvalidQuality)
	}

	ef := UpdateEaseFactor(rec.EaseFactor, quality)

	var interval, repetitions int
	if quality < passingQuality {
		repetitions = 0
		interval = 1
	} else {
		repetitions = rec.Repetitions + 1
		switch repetitions {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			last := rec.Interval
			if last < 1 {
				last = 1
			}
			interval = int(math.Round(float64(last) * ef))
		}
	}

	return Schedule{
		Interval:       interval,
		EaseFactor:     ef,
		Repetitions:    repetitions,
		Quality:        quality,
		NextReviewDate: now.AddDate(0, 0, interval),
		LastReviewDate: now,
	}, nil
}

// Review grades rec and returns the updated record.
func Review(rec Record, quality int, now time.Time) (Record, error) {
	s, err := ComputeNext(rec, quality, now)
	if err != nil {
		return rec, err
	}
	return rec.Apply(s), nil
}

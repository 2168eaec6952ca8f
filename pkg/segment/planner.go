package segment

import (
	"fmt"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

// Plan splits [0, total] into ranges of segmentLength where consecutive ranges
// share overlap. The final range ends exactly at total.
func Plan(total, segmentLength, overlap time.Duration) ([]domain.SegmentRange, error) {
	if err := Validate(segmentLength, overlap); err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total duration %v must be positive", domain.ErrConfiguration, total)
	}

	if total <= segmentLength {
		return []domain.SegmentRange{{Index: 0, Start: 0, End: total}}, nil
	}

	step := segmentLength - overlap
	ranges := make([]domain.SegmentRange, 0, int((total-overlap)/step)+1)

	for start := time.Duration(0); ; start += step {
		end := start + segmentLength
		if end >= total {
			ranges = append(ranges, domain.SegmentRange{Index: len(ranges), Start: start, End: total})
			break
		}
		ranges = append(ranges, domain.SegmentRange{Index: len(ranges), Start: start, End: end})
	}

	return ranges, nil
}

// Validate checks the segmentation parameters.
func Validate(segmentLength, overlap time.Duration) error {
	switch {
	case segmentLength <= 0:
		return fmt.Errorf("%w: segment length %v must be positive", domain.ErrConfiguration, segmentLength)
	case overlap < 0:
		return fmt.Errorf("%w: overlap %v must not be negative", domain.ErrConfiguration, overlap)
	case overlap >= segmentLength:
		return fmt.Errorf("%w: overlap %v must be shorter than segment length %v", domain.ErrConfiguration, overlap, segmentLength)
	}
	return nil
}

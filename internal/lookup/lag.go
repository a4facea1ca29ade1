package lookup

import (
	"fmt"
	"time"

	"affect-lab/internal/domain"
)

// LagStep is the spacing between lag lookups.
const LagStep = 2 * time.Minute

// LagFeatures resolves t, t-2min and t-4min and derives heart-rate changes.
//
// Every lookup must land inside the tolerance on its own record, with
// t-4min strictly before t-2min strictly before t, and carry a heart-rate
// value; otherwise ErrInsufficientHistory is returned and no partial result.
// When the future fallback applies to t, the latest record becomes the anchor
// and the earlier offsets are taken from it.
func (ix *Index) LagFeatures(target time.Time) (*domain.LagFeatureSet, error) {
	if len(ix.records) == 0 {
		return nil, ErrNoData
	}

	anchor, err := ix.Nearest(target)
	if err != nil {
		return nil, fmt.Errorf("%w: offset 0: %v", ErrInsufficientHistory, err)
	}

	base := target
	if anchor.Substituted {
		base = time.UnixMilli(anchor.Record.TimestampMs)
	}

	prev2, err := ix.NearestStrict(base.Add(-LagStep))
	if err != nil {
		return nil, fmt.Errorf("%w: offset -2m: %v", ErrInsufficientHistory, err)
	}
	prev4, err := ix.NearestStrict(base.Add(-2 * LagStep))
	if err != nil {
		return nil, fmt.Errorf("%w: offset -4m: %v", ErrInsufficientHistory, err)
	}

	if prev4.Record.TimestampMs >= prev2.Record.TimestampMs || prev2.Record.TimestampMs >= anchor.Record.TimestampMs {
		return nil, fmt.Errorf("%w: lag offsets share a record", ErrInsufficientHistory)
	}

	hr, hr2, hr4 := anchor.Record.HeartRate, prev2.Record.HeartRate, prev4.Record.HeartRate
	if hr == nil || hr2 == nil || hr4 == nil {
		return nil, fmt.Errorf("%w: missing heart rate on a resolved record", ErrInsufficientHistory)
	}

	return &domain.LagFeatureSet{
		Target:      anchor.Record,
		Prev2:       prev2.Record,
		Prev4:       prev4.Record,
		HR:          *hr,
		HRLag2:      *hr2,
		HRLag4:      *hr4,
		ChangeNow:   *hr - *hr2,
		Change2Min:  *hr2 - *hr4,
		Substituted: anchor.Substituted,
	}, nil
}

package replay

import (
	"context"
	"time"

	"github.com/offlinefirst/touchtrack/pkg/touch"
)

const syntheticOrigin = "synthetic"

type syntheticSource struct {
	clock func() time.Time
}

func defaultSource(clock func() time.Time) Source {
	return syntheticSource{clock: clock}
}

// Stream plays a fixed two-hand gesture: contact 1 dwells into a long press,
// contact 2 drags away early, contact 3 is cancelled and contacts 1 and 4 are
// still down when the stream ends.
func (s syntheticSource) Stream(ctx context.Context, emit func(Notification) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := s.clock().UTC()
	at := func(ms int) time.Time { return start.Add(time.Duration(ms) * time.Millisecond) }
	pt := func(id int64, x, y float64) touch.Contact {
		return touch.Contact{Identifier: id, ClientX: x, ClientY: y, ScreenX: x, ScreenY: y, PageX: x, PageY: y, Target: "canvas"}
	}

	timeline := []Notification{
		{Kind: touch.NotifyStart, At: at(0), Changed: []touch.Contact{pt(1, 100, 100)}, Active: []touch.Contact{pt(1, 100, 100)}},
		{Kind: touch.NotifyStart, At: at(200), Changed: []touch.Contact{pt(2, 300, 300)}, Active: []touch.Contact{pt(1, 100, 100), pt(2, 300, 300)}},
		{Kind: touch.NotifyMove, At: at(400), Changed: []touch.Contact{pt(1, 101, 102), pt(2, 320, 300)}, Active: []touch.Contact{pt(1, 101, 102), pt(2, 320, 300)}},
		{Kind: touch.NotifyMove, At: at(1200), Changed: []touch.Contact{pt(1, 102, 101)}, Active: []touch.Contact{pt(1, 102, 101), pt(2, 320, 300)}},
		{Kind: touch.NotifyEnd, At: at(1300), Changed: []touch.Contact{pt(2, 330, 300)}, Active: []touch.Contact{pt(1, 102, 101)}},
		{Kind: touch.NotifyMove, At: at(1500), Changed: []touch.Contact{pt(1, 140, 100)}, Active: []touch.Contact{pt(1, 140, 100)}},
		{Kind: touch.NotifyStart, At: at(1600), Changed: []touch.Contact{pt(3, 50, 50)}, Active: []touch.Contact{pt(1, 140, 100), pt(3, 50, 50)}},
		{Kind: touch.NotifyCancel, At: at(1700), Changed: []touch.Contact{pt(3, 50, 50)}, Active: []touch.Contact{pt(1, 140, 100)}},
		{Kind: touch.NotifyStart, At: at(1800), Changed: []touch.Contact{pt(4, 10, 10)}, Active: []touch.Contact{pt(1, 140, 100), pt(4, 10, 10)}},
	}

	for _, n := range timeline {
		n.Origin = syntheticOrigin
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(n); err != nil {
			return err
		}
	}
	return nil
}

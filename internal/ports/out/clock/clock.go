package clock

import "time"

// Clock supplies the current time. Services stamp CreatedAt/UpdatedAt through it.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

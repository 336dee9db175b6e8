package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReminder struct {
	calls []time.Time
	err   error
}

func (f *fakeReminder) RemindDueInvoices(ctx context.Context, now time.Time) (int, error) {
	f.calls = append(f.calls, now)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return len(f.calls), f.err
}

func TestRegisterReminders(t *testing.T) {
	s := New(&fakeReminder{}, zerolog.Nop())

	require.NoError(t, s.RegisterReminders(""))
	require.NoError(t, s.RegisterReminders("0 30 7 * * *"))
	assert.Len(t, s.cron.Entries(), 2)

	assert.Error(t, s.RegisterReminders("every morning"))
	// five-field specs are rejected because seconds are required
	assert.Error(t, s.RegisterReminders("0 8 * * *"))
}

func TestRunReminders(t *testing.T) {
	fake := &fakeReminder{}
	s := New(fake, zerolog.Nop())
	fixed := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunReminders()
	fake.err = errors.New("db down")
	s.RunReminders()

	require.Len(t, fake.calls, 2)
	assert.Equal(t, fixed, fake.calls[0])
}

func TestStartStop(t *testing.T) {
	s := New(&fakeReminder{}, zerolog.Nop())
	require.NoError(t, s.RegisterReminders(DefaultReminderSchedule))
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForAttempts(t *testing.T, d *Dispatcher, want int) []Attempt {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		attempts := d.Attempts()
		if len(attempts) >= want {
			return attempts
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d attempts, have %d", want, len(d.Attempts()))
	return nil
}

func TestDispatcher_DeliversInBackground(t *testing.T) {
	sender := NewMemorySender()
	d := NewDispatcher(sender, 8)
	defer d.Stop()

	d.Dispatch(Notification{
		Kind:      KindStatusChange,
		Recipient: "worker@example.com",
		Subject:   "Documents reviewed",
		Body:      "Your submission was approved.",
	})

	attempts := waitForAttempts(t, d, 1)
	require.Len(t, attempts, 1)
	assert.Equal(t, ResultSent, attempts[0].Result)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "worker@example.com", sent[0].Recipient)
}

func TestDispatcher_SkipsMissingRecipient(t *testing.T) {
	sender := NewMemorySender()
	d := NewDispatcher(sender, 8)
	defer d.Stop()

	d.Dispatch(Notification{Kind: KindStatusChange, Subject: "x", Body: "y"})

	attempts := waitForAttempts(t, d, 1)
	assert.Equal(t, ResultSkipped, attempts[0].Result)
	assert.Empty(t, sender.Sent(), "nothing should reach the sender")
}

func TestDispatcher_SendFailureIsRecordedNotSurfaced(t *testing.T) {
	sender := NewMemorySender()
	sender.Fail(errors.New("email API down"))
	d := NewDispatcher(sender, 8)
	defer d.Stop()

	// Dispatch never returns an error; failures only land in the attempt log.
	d.Dispatch(Notification{Kind: KindStatusChange, Recipient: "worker@example.com"})

	attempts := waitForAttempts(t, d, 1)
	assert.Equal(t, ResultFailed, attempts[0].Result)
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	sender := NewMemorySender()
	d := NewDispatcher(sender, 8)

	for i := 0; i < 5; i++ {
		d.Dispatch(Notification{Kind: KindMedicationReminder, Recipient: "worker@example.com"})
	}
	d.Stop()

	assert.Len(t, sender.Sent(), 5)
}

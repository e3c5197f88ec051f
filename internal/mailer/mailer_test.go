package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/accountd/authserver/internal/mq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	published  [][]byte
	publishErr error
}

func (f *fakeBackend) Publish(_ context.Context, _ string, data []byte) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, data)
	return "msg-1", nil
}

func (f *fakeBackend) Subscribe(_ context.Context, _ string, _ mq.Handler) error { return nil }
func (f *fakeBackend) Close() error                                              { return nil }

type fakeSender struct {
	sent    []Message
	sendErr error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("Ada", "ada@example.com", "http://localhost:8080/auth/email-verify?token=abc")

	assert.Equal(t, []string{"ada@example.com"}, msg.To)
	assert.Equal(t, "Verify your email", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Ada")
	assert.Contains(t, msg.Body, "http://localhost:8080/auth/email-verify?token=abc")
}

func TestPasswordResetMessage(t *testing.T) {
	msg := PasswordResetMessage("ada@example.com", "http://front/password_reset/MTI/abc")

	assert.Equal(t, []string{"ada@example.com"}, msg.To)
	assert.Equal(t, "Reset your password", msg.Subject)
	assert.Contains(t, msg.Body, "http://front/password_reset/MTI/abc")
}

func TestQueueMailerPublishesJob(t *testing.T) {
	backend := &fakeBackend{}
	qm := NewQueueMailer(backend, "mail-jobs", zerolog.Nop())

	msg := VerificationMessage("Ada", "ada@example.com", "http://link")
	require.NoError(t, qm.Send(context.Background(), msg))
	require.Len(t, backend.published, 1)

	var job Message
	require.NoError(t, json.Unmarshal(backend.published[0], &job))
	assert.Equal(t, msg, job)
}

func TestQueueMailerPublishError(t *testing.T) {
	backend := &fakeBackend{publishErr: errors.New("broker down")}
	qm := NewQueueMailer(backend, "mail-jobs", zerolog.Nop())

	err := qm.Send(context.Background(), Message{To: []string{"a@x.com"}})
	assert.Error(t, err)
}

func TestWorkerDeliversJob(t *testing.T) {
	sender := &fakeSender{}
	worker := NewWorker(&fakeBackend{}, "mail-jobs", sender, zerolog.Nop())

	job := PasswordResetMessage("ada@example.com", "http://link")
	data, err := json.Marshal(job)
	require.NoError(t, err)

	require.NoError(t, worker.handle(context.Background(), mq.Message{ID: "1", Data: data}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, job, sender.sent[0])
}

func TestWorkerDropsMalformedJob(t *testing.T) {
	sender := &fakeSender{}
	worker := NewWorker(&fakeBackend{}, "mail-jobs", sender, zerolog.Nop())

	// Acked (nil error) so a poison message does not requeue forever.
	assert.NoError(t, worker.handle(context.Background(), mq.Message{ID: "1", Data: []byte("{")}))
	assert.Empty(t, sender.sent)
}

func TestWorkerPropagatesDeliveryFailure(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("smtp refused")}
	worker := NewWorker(&fakeBackend{}, "mail-jobs", sender, zerolog.Nop())

	data, err := json.Marshal(Message{To: []string{"a@x.com"}})
	require.NoError(t, err)
	assert.Error(t, worker.handle(context.Background(), mq.Message{ID: "1", Data: data}))
}

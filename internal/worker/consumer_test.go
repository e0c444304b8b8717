package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatguard/internal/classifier"
	"chatguard/internal/domain"
	"chatguard/internal/notifier"
	"chatguard/internal/storage"
)

type fakeRepo struct {
	storage.MessageRepository
	saved   map[string]storage.Record
	saveErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saved: map[string]storage.Record{}}
}

func (r *fakeRepo) Exists(_ context.Context, id string) (bool, error) {
	rec, ok := r.saved[id]
	return ok && rec.LabelError == "", nil
}

func (r *fakeRepo) Save(_ context.Context, rec storage.Record) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved[rec.Message.ID] = rec
	return nil
}

type keywordLabeler struct {
	calls int
	err   error
}

func (k *keywordLabeler) Label(_ context.Context, texts []string) ([]classifier.Verdict, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	out := make([]classifier.Verdict, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "free") {
			out[i] = classifier.Verdict{Label: classifier.LabelPhishing, PhishingScore: 0.995}
		} else {
			out[i] = classifier.Verdict{Label: classifier.LabelBenign, PhishingScore: 0.02}
		}
	}
	return out, nil
}

type fakeNotifier struct {
	sent []notifier.Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, note notifier.Notification) error {
	n.sent = append(n.sent, note)
	return n.err
}

type fakeBroadcaster struct {
	msgs []string
}

func (b *fakeBroadcaster) Broadcast(msg string) { b.msgs = append(b.msgs, msg) }

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestConsumer(repo *fakeRepo, l classifier.Labeler, n notifier.Notifier, b Broadcaster) *Consumer {
	w := NewConsumer(nil, repo, l, n, b)
	w.now = func() time.Time { return fixedNow }
	return w
}

func TestHandleMessage_PhishingIsStoredAndNotified(t *testing.T) {
	repo := newFakeRepo()
	n := &fakeNotifier{}
	b := &fakeBroadcaster{}
	w := newTestConsumer(repo, &keywordLabeler{}, n, b)

	msg := domain.ChatMessage{ID: "m1", Platform: domain.PlatformKick, Channel: "xqc", Username: "bot", Text: "free skins at kick-gift.ru"}
	require.NoError(t, w.handleMessage(context.Background(), msg))

	rec, ok := repo.saved["m1"]
	require.True(t, ok)
	assert.Equal(t, classifier.LabelPhishing, rec.Verdict.Label)
	assert.Equal(t, fixedNow, rec.LabeledAt)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "bot", n.sent[0].Message.Username)
	assert.Equal(t, 0.995, n.sent[0].Verdict.PhishingScore)

	require.Len(t, b.msgs, 1)
	assert.Contains(t, b.msgs[0], `"label":"phishing"`)
}

func TestHandleMessage_BenignIsNotNotified(t *testing.T) {
	repo := newFakeRepo()
	n := &fakeNotifier{}
	w := newTestConsumer(repo, &keywordLabeler{}, n, nil)

	require.NoError(t, w.handleMessage(context.Background(), domain.ChatMessage{ID: "m1", Text: "gg"}))
	assert.Equal(t, classifier.LabelBenign, repo.saved["m1"].Verdict.Label)
	assert.Empty(t, n.sent)
}

func TestHandleMessage_FillsIDAndTime(t *testing.T) {
	repo := newFakeRepo()
	w := newTestConsumer(repo, &keywordLabeler{}, &fakeNotifier{}, nil)

	msg := domain.ChatMessage{Platform: domain.PlatformTwitch, Channel: "c", Username: "u", Text: "hello"}
	require.NoError(t, w.handleMessage(context.Background(), msg))

	require.Len(t, repo.saved, 1)
	for id, rec := range repo.saved {
		assert.Len(t, id, 12)
		assert.Equal(t, fixedNow, rec.Message.CreatedAt)
	}
}

func TestHandleMessage_SkipsDuplicates(t *testing.T) {
	repo := newFakeRepo()
	l := &keywordLabeler{}
	w := newTestConsumer(repo, l, &fakeNotifier{}, nil)

	msg := domain.ChatMessage{ID: "dup", Text: "free stuff"}
	require.NoError(t, w.handleMessage(context.Background(), msg))
	require.NoError(t, w.handleMessage(context.Background(), msg))
	assert.Equal(t, 1, l.calls)
}

func TestHandleMessage_LabelFailureStoresUncertain(t *testing.T) {
	repo := newFakeRepo()
	n := &fakeNotifier{}
	w := newTestConsumer(repo, &keywordLabeler{err: errors.New("timeout")}, n, nil)

	require.NoError(t, w.handleMessage(context.Background(), domain.ChatMessage{ID: "m1", Text: "free"}))
	assert.Equal(t, classifier.Verdict{Label: classifier.LabelUncertain}, repo.saved["m1"].Verdict)
	assert.Equal(t, "timeout", repo.saved["m1"].LabelError)
	assert.Empty(t, n.sent)
}

func TestHandleMessage_RelabelsAfterFailure(t *testing.T) {
	repo := newFakeRepo()
	l := &keywordLabeler{err: errors.New("timeout")}
	n := &fakeNotifier{}
	w := newTestConsumer(repo, l, n, nil)

	msg := domain.ChatMessage{ID: "m1", Text: "free skins"}
	require.NoError(t, w.handleMessage(context.Background(), msg))

	l.err = nil
	require.NoError(t, w.handleMessage(context.Background(), msg))

	assert.Equal(t, 2, l.calls)
	assert.Equal(t, classifier.LabelPhishing, repo.saved["m1"].Verdict.Label)
	assert.Empty(t, repo.saved["m1"].LabelError)
	assert.Len(t, n.sent, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "🎁🎁...", truncate("🎁🎁🎁 free", 2))
	assert.Equal(t, "né...", truncate("néé", 2))
}

func TestHandleMessage_SaveErrorIsReturned(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	n := &fakeNotifier{}
	w := newTestConsumer(repo, &keywordLabeler{}, n, nil)

	err := w.handleMessage(context.Background(), domain.ChatMessage{ID: "m1", Text: "free"})
	assert.EqualError(t, err, "disk full")
	assert.Empty(t, n.sent)
}

func TestHandleMessage_NotifyErrorIsLogged(t *testing.T) {
	repo := newFakeRepo()
	w := newTestConsumer(repo, &keywordLabeler{}, &fakeNotifier{err: errors.New("telegram down")}, nil)

	require.NoError(t, w.handleMessage(context.Background(), domain.ChatMessage{ID: "m1", Text: "free"}))
	assert.Contains(t, repo.saved, "m1")
}

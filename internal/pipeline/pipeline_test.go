package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rondo/internal/admission"
	"rondo/internal/config"
	"rondo/internal/delivery"
	"rondo/internal/model"
	"rondo/internal/telegram"
)

type fakeTransport struct {
	mu        sync.Mutex
	batches   [][]telegram.Update
	messages  []string
	actions   []string
	downloads []string

	downloadErr error
}

func (f *fakeTransport) GetUpdates(ctx context.Context, offset int64, _ int) ([]telegram.Update, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeTransport) Download(_ context.Context, fileID, dst string) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, fileID)
	f.mu.Unlock()
	if f.downloadErr != nil {
		return f.downloadErr
	}
	return os.WriteFile(dst, []byte("source-bytes"), 0o644)
}

func (f *fakeTransport) SendMessage(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeTransport) SendChatAction(_ context.Context, _ int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeTransport) SendVideoNote(context.Context, int64, string, int) error { return nil }
func (f *fakeTransport) SendVideo(context.Context, int64, string, string) error  { return nil }
func (f *fakeTransport) SendDocument(context.Context, int64, string, string) error {
	return nil
}
func (f *fakeTransport) CanSendVideoNotes(context.Context, int64) (bool, bool) { return true, true }

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type fakeEncoder struct {
	mu   sync.Mutex
	err  error
	runs int
}

func (f *fakeEncoder) Run(_ context.Context, _, dst string, _ model.TranscodeSpec) (model.Artifact, error) {
	f.mu.Lock()
	f.runs++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return model.Artifact{}, err
	}
	if err := os.WriteFile(dst, []byte("encoded"), 0o644); err != nil {
		return model.Artifact{}, err
	}
	return model.Artifact{Path: dst, Size: 7}, nil
}

func (f *fakeEncoder) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeDeliverer struct {
	err   error
	calls int
}

func (f *fakeDeliverer) Deliver(context.Context, int64, model.Artifact) (delivery.Mode, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return delivery.ModeNote, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events map[string]int
}

func newFakeRecorder() *fakeRecorder { return &fakeRecorder{events: map[string]int{}} }

func (f *fakeRecorder) bump(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[key]++
}

func (f *fakeRecorder) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[key]
}

func (f *fakeRecorder) RecordStart(context.Context, int64)      { f.bump("start") }
func (f *fakeRecorder) RecordConversion(context.Context, int64) { f.bump("conversion") }
func (f *fakeRecorder) RecordKind(_ context.Context, _ int64, kind string) {
	f.bump("kind:" + kind)
}
func (f *fakeRecorder) RecordError(_ context.Context, _ int64, code string) {
	f.bump("error:" + code)
}
func (f *fakeRecorder) RecordMetric(_ context.Context, _ int64, metric string, _ float64) {
	f.bump("metric:" + metric)
}

type testRig struct {
	pipeline  *Pipeline
	transport *fakeTransport
	encoder   *fakeEncoder
	deliverer *fakeDeliverer
	recorder  *fakeRecorder
	workDir   string
}

func newTestRig(t *testing.T, mutate func(*config.Config)) *testRig {
	t.Helper()
	cfg := config.Defaults()
	cfg.WorkDir = t.TempDir()
	cfg.UserCooldown = 0
	if mutate != nil {
		mutate(&cfg)
	}

	admitter, err := admission.New(admission.Config{
		Concurrency:     cfg.Concurrency,
		UserCooldown:    cfg.UserCooldown,
		MaxDeclaredSize: cfg.MaxDeclaredSize,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = admitter.Close() })

	rig := &testRig{
		transport: &fakeTransport{},
		encoder:   &fakeEncoder{},
		deliverer: &fakeDeliverer{},
		recorder:  newFakeRecorder(),
		workDir:   cfg.WorkDir,
	}
	rig.pipeline = New(cfg, rig.transport, admitter, rig.encoder, rig.deliverer, rig.recorder, nil)
	return rig
}

func videoRequest(msgID int) model.Request {
	return model.Request{
		ChatID:    10,
		MessageID: msgID,
		UserID:    7,
		FileID:    fmt.Sprintf("file-%d", msgID),
		Kind:      model.KindVideo,
	}
}

func TestJobHappyPath(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	assert.Equal(t, 1, rig.encoder.runCount())
	assert.Equal(t, 1, rig.deliverer.calls)
	assert.Equal(t, 1, rig.recorder.count("conversion"))
	assert.Equal(t, 1, rig.recorder.count("kind:video"))
	assert.Equal(t, 1, rig.recorder.count("metric:processing_ms"))
	assert.Equal(t, 1, rig.recorder.count("metric:output_size_bytes"))
	assert.Contains(t, rig.transport.actions, "upload_video_note")
	assert.Empty(t, rig.transport.sentMessages(), "success needs no text reply")
}

func TestJobTempDirRemoved(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	entries, err := os.ReadDir(rig.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "per-job temp dir must be gone")
}

func TestJobTempDirRemovedOnEncodeFailure(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.encoder.err = errors.New("boom")
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	entries, err := os.ReadDir(rig.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, rig.recorder.count("error:internal"))
	require.NotEmpty(t, rig.transport.sentMessages())
	assert.Zero(t, rig.deliverer.calls)
}

func TestJobDownloadFailure(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.transport.downloadErr = errors.New("getFile: file is too big")
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	assert.Zero(t, rig.encoder.runCount())
	assert.Equal(t, 1, rig.recorder.count("error:download_failed"))
}

func TestJobDeliveryFailure(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.deliverer.err = errors.New("document send failed")
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	assert.Equal(t, 1, rig.recorder.count("error:delivery_failed"))
	assert.Zero(t, rig.recorder.count("conversion"))
	require.NotEmpty(t, rig.transport.sentMessages())
}

func TestJobDeliveryTooLongAlreadyExplained(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.deliverer.err = fmt.Errorf("%w: server said no", delivery.ErrTooLong)
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	assert.Empty(t, rig.transport.sentMessages(),
		"negotiator already messaged the user for too-long")
}

func TestDeclaredDurationPreCheck(t *testing.T) {
	rig := newTestRig(t, func(cfg *config.Config) { cfg.NoteMaxSeconds = 60 })
	req := videoRequest(1)
	req.DeclaredDur = 61
	rig.pipeline.handleRequest(context.Background(), req)

	assert.Zero(t, rig.encoder.runCount())
	assert.Equal(t, 1, rig.recorder.count("error:too_long"))
	require.NotEmpty(t, rig.transport.sentMessages())
	assert.Contains(t, rig.transport.sentMessages()[0], "60 seconds")
}

func TestRateLimitedReply(t *testing.T) {
	rig := newTestRig(t, func(cfg *config.Config) { cfg.UserCooldown = 30 * time.Second })

	rig.pipeline.handleRequest(context.Background(), videoRequest(1))
	rig.pipeline.handleRequest(context.Background(), videoRequest(2))

	assert.Equal(t, 1, rig.encoder.runCount(), "second request rejected by the user gate")
	msgs := rig.transport.sentMessages()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "Try again in")
}

func TestDuplicateMessageSilent(t *testing.T) {
	rig := newTestRig(t, nil)

	rig.pipeline.handleRequest(context.Background(), videoRequest(1))
	rig.pipeline.handleRequest(context.Background(), videoRequest(1))

	assert.Equal(t, 1, rig.encoder.runCount())
	assert.Empty(t, rig.transport.sentMessages(), "duplicate redelivery stays silent")
}

func TestRunLoopDispatchesAndDrains(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.transport.batches = [][]telegram.Update{{
		{UpdateID: 5, Message: &telegram.Message{
			MessageID: 1,
			From:      &telegram.User{ID: 7},
			Chat:      telegram.Chat{ID: 10, Type: "private"},
			Video:     &telegram.Video{FileID: "abc", Duration: 10},
		}},
		{UpdateID: 6, Message: &telegram.Message{
			MessageID: 2,
			From:      &telegram.User{ID: 8},
			Chat:      telegram.Chat{ID: 11, Type: "private"},
			Text:      "/start",
		}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rig.pipeline.Run(ctx) }()

	require.Eventually(t, func() bool {
		return rig.encoder.runCount() == 1 && rig.recorder.count("start") == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not drain")
	}
}

func TestCommandParsing(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		ok   bool
	}{
		{"/start", "/start", true},
		{"/start@rondo_bot", "/start", true},
		{"/stats extra args", "/stats", true},
		{"hello", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		cmd, ok := command(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
	}
}

func TestStatsCommandAdminOnly(t *testing.T) {
	rig := newTestRig(t, func(cfg *config.Config) { cfg.AdminUserID = 99 })

	msg := &telegram.Message{
		MessageID: 1,
		From:      &telegram.User{ID: 7},
		Chat:      telegram.Chat{ID: 10},
		Text:      "/stats",
	}
	rig.pipeline.handleUpdate(context.Background(), telegram.Update{UpdateID: 1, Message: msg})
	assert.Empty(t, rig.transport.sentMessages(), "non-admin gets nothing")

	msg.From.ID = 99
	msg.MessageID = 2
	rig.pipeline.handleUpdate(context.Background(), telegram.Update{UpdateID: 2, Message: msg})
	require.NotEmpty(t, rig.transport.sentMessages())
}

func TestSpecFromConfigDefaults(t *testing.T) {
	spec := specFromConfig(config.Defaults())
	assert.Equal(t, 640, spec.Size)
	assert.Equal(t, 14, spec.CRF)
	assert.Equal(t, "slow", spec.Preset)
	assert.Equal(t, model.AudioCopy, spec.AudioMode)
	assert.True(t, spec.Compat)
}

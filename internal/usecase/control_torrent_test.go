package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"torrentcore/internal/domain"
)

func TestPauseTorrentPersistsState(t *testing.T) {
	reg := &fakeRegistry{
		status: domain.TorrentStatus{
			ID:              testID,
			Name:            "alpha",
			State:           domain.StatePaused,
			TotalWanted:     2048,
			TotalWantedDone: 512,
			IsPaused:        true,
		},
	}
	repo := &fakeRepo{}
	uc := PauseTorrent{Registry: reg, Repo: repo}

	status, err := uc.Execute(context.Background(), testID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reg.pauseCalled != 1 {
		t.Fatalf("pause calls = %d", reg.pauseCalled)
	}
	if status.State != domain.StatePaused || !status.IsPaused {
		t.Fatalf("status = %+v, want paused", status)
	}
	update, ok := repo.updates[testID]
	if !ok {
		t.Fatalf("state not mirrored into repo")
	}
	if update.State != domain.StatePaused || update.DoneBytes != 512 || update.TotalBytes != 2048 {
		t.Fatalf("update = %+v", update)
	}
}

func TestPauseTorrentInvalidTransition(t *testing.T) {
	reg := &fakeRegistry{
		pauseErr: fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, domain.StateChecking, domain.StatePaused),
	}
	repo := &fakeRepo{}
	uc := PauseTorrent{Registry: reg, Repo: repo}

	if _, err := uc.Execute(context.Background(), testID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	if repo.updateCalled != 0 {
		t.Fatalf("failed transition reached repo")
	}
}

func TestResumeTorrentPersistsState(t *testing.T) {
	reg := &fakeRegistry{
		status: domain.TorrentStatus{ID: testID, State: domain.StateDownloading},
	}
	repo := &fakeRepo{}
	uc := ResumeTorrent{Registry: reg, Repo: repo}

	status, err := uc.Execute(context.Background(), testID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reg.resumeCalled != 1 {
		t.Fatalf("resume calls = %d", reg.resumeCalled)
	}
	if status.State != domain.StateDownloading {
		t.Fatalf("state = %q, want downloading", status.State)
	}
	if update := repo.updates[testID]; update.State != domain.StateDownloading {
		t.Fatalf("update state = %q", update.State)
	}
}

func TestRetryTorrentPersistsState(t *testing.T) {
	reg := &fakeRegistry{
		status: domain.TorrentStatus{ID: testID, State: domain.StateChecking},
	}
	repo := &fakeRepo{}
	uc := RetryTorrent{Registry: reg, Repo: repo}

	status, err := uc.Execute(context.Background(), testID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if reg.retryCalled != 1 {
		t.Fatalf("retry calls = %d", reg.retryCalled)
	}
	if status.State != domain.StateChecking {
		t.Fatalf("state = %q, want checking", status.State)
	}
}

func TestControlToleratesMissingRecord(t *testing.T) {
	reg := &fakeRegistry{
		status: domain.TorrentStatus{ID: testID, State: domain.StatePaused},
	}
	repo := &fakeRepo{updateErr: domain.ErrNotFound}
	uc := PauseTorrent{Registry: reg, Repo: repo}

	if _, err := uc.Execute(context.Background(), testID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestControlRepoFailure(t *testing.T) {
	reg := &fakeRegistry{
		status: domain.TorrentStatus{ID: testID, State: domain.StatePaused},
	}
	repo := &fakeRepo{updateErr: errors.New("connection reset")}
	uc := PauseTorrent{Registry: reg, Repo: repo}

	if _, err := uc.Execute(context.Background(), testID); !errors.Is(err, ErrRepository) {
		t.Fatalf("err = %v, want ErrRepository", err)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
)

func TestTriggerAnalysis_UsesFirstPullRequest(t *testing.T) {
	backend := &fakeBackend{
		prs: []model.PullRequest{
			{PRID: 42, Title: "feature", State: "OPEN"},
			{PRID: 7, Title: "older", State: "CLOSED"},
		},
		mutation: &model.MutationResult{Success: true, Message: "Analysis triggered"},
	}
	svc := NewPullService(backend, NewTracker(), testLogger())

	msg, prID, err := svc.TriggerAnalysis(context.Background(), devScope(), "acme", "feature")
	if err != nil {
		t.Fatalf("TriggerAnalysis() error = %v", err)
	}
	if msg != "Analysis triggered" || prID != 42 {
		t.Errorf("got (%q, %d), want (Analysis triggered, 42)", msg, prID)
	}
	c := backend.callsTo("triggerAnalysis")
	if len(c) != 1 {
		t.Fatalf("triggerAnalysis called %d times", len(c))
	}
	want := []any{"devuser", "acme", "feature", 42}
	for i, a := range want {
		if c[0].args[i] != a {
			t.Errorf("arg %d = %v, want %v", i, c[0].args[i], a)
		}
	}
}

func TestTriggerAnalysis_NoPullRequests(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewPullService(backend, NewTracker(), testLogger())

	_, _, err := svc.TriggerAnalysis(context.Background(), devScope(), "acme", "main")

	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(backend.callsTo("triggerAnalysis")) != 0 {
		t.Error("no mutation should be sent")
	}
}

func TestConnectGitHub(t *testing.T) {
	t.Run("url is returned", func(t *testing.T) {
		backend := &fakeBackend{authURL: &model.GitHubAuthURL{URL: "https://github.com/login/oauth/authorize?x=1"}}
		svc := NewPullService(backend, NewTracker(), testLogger())

		url, err := svc.ConnectGitHub(context.Background(), devScope())
		if err != nil || url == "" {
			t.Fatalf("ConnectGitHub() = %q, %v", url, err)
		}
	})

	t.Run("missing url surfaces the backend message", func(t *testing.T) {
		backend := &fakeBackend{authURL: &model.GitHubAuthURL{Message: "GitHub app not installed"}}
		svc := NewPullService(backend, NewTracker(), testLogger())

		_, err := svc.ConnectGitHub(context.Background(), devScope())
		if apperror.Message(err) != "GitHub app not installed" {
			t.Errorf("error = %v", err)
		}
	})
}

func TestComments_RejectsBadID(t *testing.T) {
	svc := NewPullService(&fakeBackend{}, NewTracker(), testLogger())

	if _, err := svc.Comments(context.Background(), devScope(), "acme", 0); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

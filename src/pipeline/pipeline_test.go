package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunStopsOnFatal(t *testing.T) {
	var ran []string
	boom := errors.New("boom")

	stages := []Stage{
		{Name: "first", Class: Fatal, Run: func(context.Context) error { ran = append(ran, "first"); return nil }},
		{Name: "second", Class: Fatal, Run: func(context.Context) error { ran = append(ran, "second"); return boom }},
		{Name: "third", Class: Fatal, Run: func(context.Context) error { ran = append(ran, "third"); return nil }},
	}

	results, err := Run(context.Background(), stages)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "second:") {
		t.Errorf("error not wrapped with stage name: %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("third stage ran after fatal failure: %v", ran)
	}
	if len(results) != 2 || results[1].Status() != "failed" {
		t.Errorf("results = %+v", results)
	}
}

func TestRunContinuesPastBestEffort(t *testing.T) {
	var ran []string

	stages := []Stage{
		{Name: "tag", Class: Fatal, Run: func(context.Context) error { ran = append(ran, "tag"); return nil }},
		{Name: "prune", Class: BestEffort, Run: func(context.Context) error { ran = append(ran, "prune"); return errors.New("disk busy") }},
		{Name: "report", Class: Fatal, Run: func(context.Context) error { ran = append(ran, "report"); return nil }},
	}

	results, err := Run(context.Background(), stages)
	if err != nil {
		t.Fatalf("best-effort failure surfaced as run error: %v", err)
	}
	if len(ran) != 3 {
		t.Errorf("pipeline stopped early: %v", ran)
	}
	if results[1].Status() != "ignored" {
		t.Errorf("best-effort failure status = %q", results[1].Status())
	}
}

func TestResultStatus(t *testing.T) {
	if (Result{}).Status() != "success" {
		t.Error("nil error should be success")
	}
	if (Result{Err: errors.New("x"), Class: Fatal}).Status() != "failed" {
		t.Error("fatal error should be failed")
	}
	if (Result{Err: errors.New("x"), Class: BestEffort}).Status() != "ignored" {
		t.Error("best-effort error should be ignored")
	}
}

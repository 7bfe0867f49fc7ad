package models

import "testing"

func TestParseRole(t *testing.T) {
	for _, role := range Roles {
		got, err := ParseRole(string(role))
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", role, err)
		}
		if got != role {
			t.Fatalf("ParseRole(%q) = %q", role, got)
		}
	}
	for _, bad := range []string{"", "admin", "MEMBER", "superuser"} {
		if _, err := ParseRole(bad); err == nil {
			t.Fatalf("ParseRole(%q): expected error", bad)
		}
	}
}

func TestEventTransitions(t *testing.T) {
	allowed := map[EventStatus][]EventStatus{
		EventDraft:     {EventPublished, EventCancelled},
		EventPublished: {EventOngoing, EventCancelled},
		EventOngoing:   {EventCompleted, EventCancelled},
		EventCompleted: nil,
		EventCancelled: nil,
	}
	all := []EventStatus{EventDraft, EventPublished, EventOngoing, EventCompleted, EventCancelled}
	for from, nexts := range allowed {
		ok := make(map[EventStatus]bool)
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != ok[to] {
				t.Fatalf("event %s -> %s = %v, want %v", from, to, got, ok[to])
			}
		}
	}
}

func TestTaskTransitions(t *testing.T) {
	allowed := map[TaskStatus][]TaskStatus{
		TaskPending:    {TaskInProgress, TaskCompleted, TaskOverdue},
		TaskInProgress: {TaskCompleted, TaskOverdue},
		TaskOverdue:    {TaskInProgress, TaskCompleted},
		TaskCompleted:  nil,
	}
	all := []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskOverdue}
	for from, nexts := range allowed {
		ok := make(map[TaskStatus]bool)
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			if got := from.CanTransition(to); got != ok[to] {
				t.Fatalf("task %s -> %s = %v, want %v", from, to, got, ok[to])
			}
		}
	}

	// No state may transition to itself.
	for _, s := range all {
		if s.CanTransition(s) {
			t.Fatalf("task %s -> %s should be rejected", s, s)
		}
	}
}

func TestParseTaskPriority(t *testing.T) {
	for _, p := range []string{"low", "medium", "high", "urgent"} {
		if _, ok := ParseTaskPriority(p); !ok {
			t.Fatalf("ParseTaskPriority(%q): rejected", p)
		}
	}
	if _, ok := ParseTaskPriority("critical"); ok {
		t.Fatal("ParseTaskPriority(critical): accepted")
	}
}

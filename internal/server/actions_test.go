package server

import (
	"errors"
	"testing"
)

func baseActionSession() *GameSession {
	return testSession(map[string]Role{
		"mafia":   RoleMafia,
		"police":  RolePolice,
		"doctor":  RoleDoctor,
		"citizen": RoleCitizen,
		"bob":     RoleCitizen,
	})
}

func TestEliminateSuccess(t *testing.T) {
	g := baseActionSession()
	outcome, err := eliminate(g, "mafia", "citizen")
	if err != nil {
		t.Fatalf("eliminate: %v", err)
	}
	if outcome != ActionSuccess {
		t.Fatalf("expected success, got %v", outcome)
	}
	if g.Players["citizen"].Alive {
		t.Fatalf("target should be dead")
	}
	if g.LastEliminatedID != "citizen" {
		t.Fatalf("expected elimination recorded, got %s", g.LastEliminatedID)
	}
}

func TestEliminateBlockedByProtection(t *testing.T) {
	g := baseActionSession()
	if err := protect(g, "doctor", "citizen"); err != nil {
		t.Fatalf("protect: %v", err)
	}
	outcome, err := eliminate(g, "mafia", "citizen")
	if err != nil {
		t.Fatalf("eliminate: %v", err)
	}
	if outcome != ActionBlocked {
		t.Fatalf("expected blocked, got %v", outcome)
	}
	if !g.Players["citizen"].Alive {
		t.Fatalf("protected target must survive")
	}
	if g.Players["citizen"].Protected {
		t.Fatalf("shield must be consumed by the blocked attack")
	}

	// The second attack in the same round goes through.
	outcome, err = eliminate(g, "mafia", "citizen")
	if err != nil || outcome != ActionSuccess {
		t.Fatalf("expected success after shield consumed, got %v %v", outcome, err)
	}
}

func TestEliminatePreconditions(t *testing.T) {
	g := baseActionSession()
	if _, err := eliminate(g, "citizen", "bob"); !errors.Is(err, ErrNotYourRole) {
		t.Fatalf("expected role rejection, got %v", err)
	}
	if _, err := eliminate(g, "mafia", "ghost"); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected target not found, got %v", err)
	}

	g.Players["bob"].Alive = false
	if _, err := eliminate(g, "mafia", "bob"); !errors.Is(err, ErrTargetDead) {
		t.Fatalf("expected dead target rejected, got %v", err)
	}

	g.Players["mafia"].Alive = false
	if _, err := eliminate(g, "mafia", "citizen"); !errors.Is(err, ErrNotAlive) {
		t.Fatalf("expected dead actor rejected, got %v", err)
	}
}

func TestEliminateOnlyWhilePlaying(t *testing.T) {
	g := baseActionSession()
	g.Phase = PhaseMeeting
	if _, err := eliminate(g, "mafia", "citizen"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("expected wrong phase, got %v", err)
	}
}

func TestProtectMovesShield(t *testing.T) {
	g := baseActionSession()
	if err := protect(g, "doctor", "citizen"); err != nil {
		t.Fatalf("protect: %v", err)
	}
	if err := protect(g, "doctor", "bob"); err != nil {
		t.Fatalf("re-protect: %v", err)
	}
	if g.Players["citizen"].Protected {
		t.Fatalf("old shield should be dropped")
	}
	if !g.Players["bob"].Protected {
		t.Fatalf("new target should hold the shield")
	}
}

func TestProtectRequiresDoctor(t *testing.T) {
	g := baseActionSession()
	if err := protect(g, "mafia", "citizen"); !errors.Is(err, ErrNotYourRole) {
		t.Fatalf("expected role rejection, got %v", err)
	}
}

func TestInvestigate(t *testing.T) {
	g := baseActionSession()
	isMafia, err := investigate(g, "police", "mafia")
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if !isMafia {
		t.Fatalf("expected mafia detected")
	}
	isMafia, err = investigate(g, "police", "citizen")
	if err != nil {
		t.Fatalf("investigate: %v", err)
	}
	if isMafia {
		t.Fatalf("citizen must not read as mafia")
	}
	if g.LastInvestigatedID != "citizen" {
		t.Fatalf("expected investigation recorded, got %s", g.LastInvestigatedID)
	}
	if _, err := investigate(g, "citizen", "mafia"); !errors.Is(err, ErrNotYourRole) {
		t.Fatalf("expected role rejection, got %v", err)
	}
}

package server

import "testing"

func TestVisibleRoleMasking(t *testing.T) {
	mafia := &PlayerState{ID: "m1", Role: RoleMafia, Alive: true}
	mafia2 := &PlayerState{ID: "m2", Role: RoleMafia, Alive: true}
	police := &PlayerState{ID: "p", Role: RolePolice, Alive: true}
	citizen := &PlayerState{ID: "c", Role: RoleCitizen, Alive: true}
	dead := &PlayerState{ID: "d", Role: RoleDoctor, Alive: false}

	cases := []struct {
		name   string
		viewer *PlayerState
		target *PlayerState
		want   Role
	}{
		{"self sees own role", police, police, RolePolice},
		{"dead role is public", citizen, dead, RoleDoctor},
		{"mafia sees fellow mafia", mafia, mafia2, RoleMafia},
		{"living mafia hidden from citizen", citizen, mafia, RoleCitizen},
		{"living police hidden from mafia", mafia, police, RoleCitizen},
		{"no viewer hides living roles", nil, police, RoleCitizen},
		{"no viewer still reveals dead", nil, dead, RoleDoctor},
	}
	for _, tc := range cases {
		if got := visibleRole(tc.viewer, tc.target); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSessionSnapshotMasksOthers(t *testing.T) {
	g := testSession(map[string]Role{
		"me":     RolePolice,
		"hidden": RoleMafia,
		"gone":   RoleDoctor,
	})
	g.Players["gone"].Alive = false
	g.Phase = PhaseVoting
	g.Votes["me"] = VoteSkip

	snap := sessionSnapshot(g, "me")
	if snap.Phase != PhaseVoting {
		t.Fatalf("expected voting phase, got %s", snap.Phase)
	}
	if snap.Players["me"].Role != RolePolice {
		t.Fatalf("viewer should see own role, got %s", snap.Players["me"].Role)
	}
	if snap.Players["hidden"].Role != RoleCitizen {
		t.Fatalf("living mafia must read citizen, got %s", snap.Players["hidden"].Role)
	}
	if snap.Players["gone"].Role != RoleDoctor {
		t.Fatalf("dead role must be revealed, got %s", snap.Players["gone"].Role)
	}
	if snap.Votes["me"] != VoteSkip {
		t.Fatalf("expected vote ledger copied, got %#v", snap.Votes)
	}
}

func TestSnapshotVotesAreACopy(t *testing.T) {
	g := testSession(map[string]Role{"a": RoleCitizen, "b": RoleMafia})
	g.Votes["a"] = "b"
	snap := sessionSnapshot(g, "a")
	snap.Votes["a"] = VoteSkip
	if g.Votes["a"] != "b" {
		t.Fatalf("snapshot must not alias the live ledger")
	}
}

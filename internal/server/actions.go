package server

// ActionOutcome reports how an eliminate attempt resolved.
type ActionOutcome int

const (
	ActionInvalid ActionOutcome = iota
	ActionSuccess
	ActionBlocked
)

// requireActor checks phase-independent action preconditions: the actor
// exists, is alive, and its role carries the requested capability.
func requireActor(g *GameSession, actorID string, allowed func(capability) bool) (*PlayerState, error) {
	actor, ok := g.player(actorID)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	if !actor.Alive {
		return nil, ErrNotAlive
	}
	if !allowed(roleCapabilities[actor.Role]) {
		return nil, ErrNotYourRole
	}
	return actor, nil
}

func requireLivingTarget(g *GameSession, targetID string) (*PlayerState, error) {
	target, ok := g.player(targetID)
	if !ok {
		return nil, ErrTargetNotFound
	}
	if !target.Alive {
		return nil, ErrTargetDead
	}
	return target, nil
}

// eliminate applies a mafia attack. A protected target survives and the
// shield is consumed; the attack is reported as blocked, not failed.
func eliminate(g *GameSession, actorID, targetID string) (ActionOutcome, error) {
	if g.Phase != PhasePlaying {
		return ActionInvalid, ErrWrongPhase
	}
	if _, err := requireActor(g, actorID, func(c capability) bool { return c.eliminate }); err != nil {
		return ActionInvalid, err
	}
	target, err := requireLivingTarget(g, targetID)
	if err != nil {
		return ActionInvalid, err
	}

	if target.Protected {
		target.Protected = false
		return ActionBlocked, nil
	}
	target.Alive = false
	g.LastEliminatedID = targetID
	return ActionSuccess, nil
}

// protect moves the doctor's single shield onto the target. Only one player
// can be protected at a time.
func protect(g *GameSession, actorID, targetID string) error {
	if _, err := requireActor(g, actorID, func(c capability) bool { return c.protect }); err != nil {
		return err
	}
	target, err := requireLivingTarget(g, targetID)
	if err != nil {
		return err
	}

	for _, p := range g.Players {
		p.Protected = false
	}
	target.Protected = true
	return nil
}

// investigate reveals whether the target is mafia. Nothing about the session
// changes beyond the audit record of the last check.
func investigate(g *GameSession, actorID, targetID string) (bool, error) {
	if _, err := requireActor(g, actorID, func(c capability) bool { return c.investigate }); err != nil {
		return false, err
	}
	target, err := requireLivingTarget(g, targetID)
	if err != nil {
		return false, err
	}

	g.LastInvestigatedID = targetID
	return target.Role == RoleMafia, nil
}

package server

import "math/rand"

// Role counts by roster size: one mafia and one police from the start, a
// doctor once the roster reaches 6, a second mafia once it reaches 8. Every
// remaining seat is a citizen.
func roleCounts(playerCount int) (mafia, police, doctor int) {
	mafia = 1
	police = 1
	if playerCount >= 6 {
		doctor = 1
	}
	if playerCount >= 8 {
		mafia = 2
	}
	return mafia, police, doctor
}

// assignRoles deals a shuffled role list onto the roster. The shuffle is
// rand.Shuffle (Fisher-Yates), so every player index has an equal chance at
// every role.
func assignRoles(playerIDs []string) map[string]Role {
	mafia, police, doctor := roleCounts(len(playerIDs))

	roles := make([]Role, 0, len(playerIDs))
	for i := 0; i < mafia; i++ {
		roles = append(roles, RoleMafia)
	}
	for i := 0; i < police; i++ {
		roles = append(roles, RolePolice)
	}
	for i := 0; i < doctor; i++ {
		roles = append(roles, RoleDoctor)
	}
	for len(roles) < len(playerIDs) {
		roles = append(roles, RoleCitizen)
	}

	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	assigned := make(map[string]Role, len(playerIDs))
	for i, id := range playerIDs {
		assigned[id] = roles[i]
	}
	return assigned
}

func roleName(role Role) string {
	switch role {
	case RoleMafia:
		return "Mafia"
	case RolePolice:
		return "Police"
	case RoleDoctor:
		return "Doctor"
	default:
		return "Citizen"
	}
}

func roleDescription(role Role) string {
	switch role {
	case RoleMafia:
		return "Eliminate citizens without getting caught. Coordinate with the other mafia."
	case RolePolice:
		return "Investigate one player each round to learn whether they are mafia."
	case RoleDoctor:
		return "Protect one player each round from a mafia attack."
	default:
		return "Find the mafia and vote them out. Choose wisely in meetings."
	}
}

// Per-role action capabilities. Action handlers check the actor against this
// table instead of branching on the role inline.
type capability struct {
	eliminate   bool
	protect     bool
	investigate bool
}

var roleCapabilities = map[Role]capability{
	RoleCitizen: {},
	RoleMafia:   {eliminate: true},
	RolePolice:  {investigate: true},
	RoleDoctor:  {protect: true},
}

func mafiaTeammates(session *GameSession) []map[string]string {
	team := make([]map[string]string, 0)
	for _, p := range session.Players {
		if p.Role == RoleMafia {
			team = append(team, map[string]string{
				"id":       p.ID,
				"nickname": p.Nickname,
			})
		}
	}
	return team
}

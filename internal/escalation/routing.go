package escalation

import "time"

// teamByType routes escalation types to owning teams. Types the classifier
// invents that we don't recognize land on the general support queue.
var teamByType = map[string]Team{
	"urgent":        TeamEmergency,
	"payment_issue": TeamFinance,
	"technical":     TeamTechnical,
	"dispute":       TeamDispute,
	"vip_support":   TeamVIP,
	"complaint":     TeamSupport,
}

// slaByTeam holds each team's SLA duration. Safety and VIP paths get the
// tightest deadlines; disputes need investigation and get the longest.
var slaByTeam = map[Team]time.Duration{
	TeamEmergency: 15 * time.Minute,
	TeamVIP:       30 * time.Minute,
	TeamTechnical: 60 * time.Minute,
	TeamFinance:   120 * time.Minute,
	TeamSupport:   120 * time.Minute,
	TeamDispute:   240 * time.Minute,
}

// RouteTeam resolves the owning team for an escalation type.
func RouteTeam(escalationType string) Team {
	if team, ok := teamByType[escalationType]; ok {
		return team
	}
	return TeamSupport
}

// TeamSLA returns the SLA duration for a team. Unknown teams fall back to
// the support queue's SLA so a deadline is always computable.
func TeamSLA(team Team) time.Duration {
	if d, ok := slaByTeam[team]; ok {
		return d
	}
	return slaByTeam[TeamSupport]
}

package models

// GrantOrigin distinguishes direct shares from team-derived ones. The two
// origins never interfere: detaching a team deletes only grants carrying
// that team id, and unsharing a user deletes only the direct grant.
//
// The zero value is the direct origin.
type GrantOrigin struct {
	teamID *string
}

// DirectOrigin marks a grant created by sharing with a user directly.
func DirectOrigin() GrantOrigin {
	return GrantOrigin{}
}

// TeamOrigin marks a grant derived from a team attachment.
func TeamOrigin(teamID string) GrantOrigin {
	if teamID == "" {
		return GrantOrigin{}
	}
	id := teamID
	return GrantOrigin{teamID: &id}
}

// OriginFromTeamID rebuilds an origin from a stored nullable team id column.
func OriginFromTeamID(teamID *string) GrantOrigin {
	if teamID == nil || *teamID == "" {
		return GrantOrigin{}
	}
	return TeamOrigin(*teamID)
}

// IsTeam reports whether the grant is team-derived.
func (o GrantOrigin) IsTeam() bool {
	return o.teamID != nil
}

// TeamID returns the originating team id, or nil for direct grants.
func (o GrantOrigin) TeamID() *string {
	if o.teamID == nil {
		return nil
	}
	id := *o.teamID
	return &id
}

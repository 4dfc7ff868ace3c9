package models

// GuildConfig holds one guild's scheduling setup. A guild appears here as
// soon as it runs /here or /timezone; it cannot fire or create schedules
// until both are set.
type GuildConfig struct {
	ChannelID string     `json:"schedule_channel,omitempty"`
	Timezone  string     `json:"schedule_timezone,omitempty"`
	Schedules []Schedule `json:"schedules,omitempty"`
}

// Ready reports whether the guild is fully set up for scheduling.
func (g GuildConfig) Ready() bool {
	return g.ChannelID != "" && g.Timezone != ""
}

func (g GuildConfig) Clone() GuildConfig {
	if g.Schedules != nil {
		schedules := make([]Schedule, len(g.Schedules))
		for i, s := range g.Schedules {
			schedules[i] = s.Clone()
		}
		g.Schedules = schedules
	}
	return g
}

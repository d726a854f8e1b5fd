package store

// AgeGroup buckets a user's age.
type AgeGroup string

const (
	AgeTeens     AgeGroup = "10代"
	AgeTwenties  AgeGroup = "20代"
	AgeThirties  AgeGroup = "30代"
	AgeFortiesUp AgeGroup = "40代〜"
)

// AllAgeGroups returns the age-group domain in display order.
func AllAgeGroups() []AgeGroup {
	return []AgeGroup{AgeTeens, AgeTwenties, AgeThirties, AgeFortiesUp}
}

// Valid reports whether a is a declared age group.
func (a AgeGroup) Valid() bool {
	for _, v := range AllAgeGroups() {
		if a == v {
			return true
		}
	}
	return false
}

// Mode is the tracking mode a user has selected.
type Mode string

const (
	ModeCycle     Mode = "生理管理"
	ModeFertility Mode = "妊活"
)

// AllModes returns the mode domain in display order.
func AllModes() []Mode {
	return []Mode{ModeCycle, ModeFertility}
}

// Valid reports whether m is a declared mode.
func (m Mode) Valid() bool {
	return m == ModeCycle || m == ModeFertility
}

// CyclePhase is the menstrual-cycle phase a user is currently in.
type CyclePhase string

const (
	PhaseMenstrual  CyclePhase = "月経期"
	PhaseFollicular CyclePhase = "卵胞期"
	PhaseOvulatory  CyclePhase = "排卵期"
	PhaseLuteal     CyclePhase = "黄体期"
)

// AllCyclePhases returns the phase domain in cycle order.
func AllCyclePhases() []CyclePhase {
	return []CyclePhase{PhaseMenstrual, PhaseFollicular, PhaseOvulatory, PhaseLuteal}
}

// Valid reports whether p is a declared phase.
func (p CyclePhase) Valid() bool {
	for _, v := range AllCyclePhases() {
		if p == v {
			return true
		}
	}
	return false
}

// Role identifies the speaker of an utterance.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is user or assistant.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// UserColumn names a user attribute that can be grouped on.
type UserColumn string

const (
	ColumnAgeGroup   UserColumn = "age_group"
	ColumnMode       UserColumn = "mode"
	ColumnCyclePhase UserColumn = "cycle_phase"
)

// Valid reports whether c is a groupable column.
func (c UserColumn) Valid() bool {
	return c == ColumnAgeGroup || c == ColumnMode || c == ColumnCyclePhase
}

// Value returns the attribute of u named by c.
func (c UserColumn) Value(u User) string {
	switch c {
	case ColumnAgeGroup:
		return string(u.AgeGroup)
	case ColumnMode:
		return string(u.Mode)
	case ColumnCyclePhase:
		return string(u.CyclePhase)
	}
	return ""
}

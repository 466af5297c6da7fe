package model

const (
	UnknownCategoryEmoji = ":grey_question:"

	// DateLayout is how BambooHR and the reconciler spell calendar dates
	DateLayout = "2006-01-02"
)

// StatusProfile is what a time-off category looks like on a Slack profile
type StatusProfile struct {
	Text      string
	Emoji     string
	Canonical string
}

// TimeOffCategory is a BambooHR time-off type name. Its position in timeOffCategories is its priority.
type TimeOffCategory string

const (
	TimeOffOvertime     TimeOffCategory = "Overtime Work"
	TimeOffVacation     TimeOffCategory = "Vacation"
	TimeOffUnpaidDayOff TimeOffCategory = "Unpaid Day Off"
	TimeOffSick         TimeOffCategory = "Sick"
	TimeOffRemoteWork   TimeOffCategory = "Remote Work"
	TimeOffBusinessTrip TimeOffCategory = "Business trip"
	TimeOffBereavement  TimeOffCategory = "Bereavement"
)

type categoryEntry struct {
	category TimeOffCategory
	profile  StatusProfile
}

// lower index wins
var timeOffCategories = []categoryEntry{
	{TimeOffOvertime, StatusProfile{"Overtime Work", ":bee:", "Overtime Work"}},
	{TimeOffVacation, StatusProfile{"On holiday", ":palm_tree:", "Vacationing"}},
	{TimeOffUnpaidDayOff, StatusProfile{"Day off", ":family:", "Day off"}},
	{TimeOffSick, StatusProfile{"Out sick", ":face_with_thermometer:", "Out sick"}},
	{TimeOffRemoteWork, StatusProfile{"Working remotely", ":house_with_garden:", "Working remotely"}},
	{TimeOffBusinessTrip, StatusProfile{"Business trip", ":airplane:", "Business trip"}},
	{TimeOffBereavement, StatusProfile{"Bereavement leave", ":pray:", "Bereavement leave"}},
}

// Ordinal returns the priority of c and whether it is a known category
func (c TimeOffCategory) Ordinal() (int, bool) {
	for i, e := range timeOffCategories {
		if e.category == c {
			return i, true
		}
	}
	return len(timeOffCategories), false
}

// Profile returns the status profile for c. Unknown names are shown as-is.
func (c TimeOffCategory) Profile() StatusProfile {
	if i, ok := c.Ordinal(); ok {
		return timeOffCategories[i].profile
	}
	return StatusProfile{
		Text:      string(c),
		Emoji:     UnknownCategoryEmoji,
		Canonical: string(c),
	}
}

// SelectCategory picks the highest priority category from names in source order.
// Unknown names rank after every known one; among unknown names the first wins.
func SelectCategory(names []string) (TimeOffCategory, bool) {
	if len(names) == 0 {
		return "", false
	}

	best := TimeOffCategory(names[0])
	bestOrd, _ := best.Ordinal()
	for _, name := range names[1:] {
		c := TimeOffCategory(name)
		if ord, _ := c.Ordinal(); ord < bestOrd {
			best, bestOrd = c, ord
		}
	}
	return best, true
}

// TimeOffSchedule maps employee ID to date to the category names active that day
type TimeOffSchedule map[string]map[string][]string

// Add appends category for employeeID on date, keeping source order
func (s TimeOffSchedule) Add(employeeID, date, category string) {
	days, ok := s[employeeID]
	if !ok {
		days = make(map[string][]string)
		s[employeeID] = days
	}
	days[date] = append(days[date], category)
}

// Lookup returns the category names of employeeID on date
func (s TimeOffSchedule) Lookup(employeeID, date string) []string {
	return s[employeeID][date]
}

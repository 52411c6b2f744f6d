package schedule

// Default returns the plant's standard three-shift table.
func Default() *Schedule {
	c := MustParseClock
	return &Schedule{
		Shifts: []ShiftWindow{
			{Label: "Shift 1", Start: c("06:00"), End: c("14:00")},
			{Label: "Shift 2", Start: c("14:00"), End: c("22:00")},
			{Label: "Shift 3", Start: c("22:00"), End: c("06:00")},
		},
		Slots: []BreakSlot{
			{Shift: "Shift 1", Start: c("06:00"), End: c("09:30"), Kind: Working()},
			{Shift: "Shift 1", Start: c("09:30"), End: c("10:30"), Kind: Break("Tea Break", 20)},
			{Shift: "Shift 1", Start: c("10:30"), End: c("11:00"), Kind: Working()},
			{Shift: "Shift 1", Start: c("11:00"), End: c("13:30"), Kind: Break("Lunch", 45)},
			{Shift: "Shift 1", Start: c("13:30"), End: c("14:00"), Kind: Working()},

			{Shift: "Shift 2", Start: c("14:00"), End: c("16:00"), Kind: Working()},
			{Shift: "Shift 2", Start: c("16:00"), End: c("17:00"), Kind: Break("Tea Break", 20)},
			{Shift: "Shift 2", Start: c("17:00"), End: c("18:00"), Kind: Working()},
			{Shift: "Shift 2", Start: c("18:00"), End: c("19:30"), Kind: Break("Dinner", 45)},
			{Shift: "Shift 2", Start: c("19:30"), End: c("22:00"), Kind: Working()},

			{Shift: "Shift 3", Start: c("00:00"), End: c("01:30"), Kind: Break("Meal", 30)},
			{Shift: "Shift 3", Start: c("01:30"), End: c("04:00"), Kind: Working()},
			{Shift: "Shift 3", Start: c("04:00"), End: c("05:20"), Kind: Break("Morning Prayer", 30)},
			{Shift: "Shift 3", Start: c("05:20"), End: c("06:00"), Kind: Working()},
			{Shift: "Shift 3", Start: c("22:30"), End: c("23:59:59"), Kind: Working()},
		},
	}
}

package capsule

// ComputeActivities flattens the activities of the installed capsules.
// Capsules are visited in installedIDs order and their activities in declaration
// order; the first activity seen for an id wins. Ids missing from capsules are skipped.
// The result is never nil so it serializes as an empty list.
func ComputeActivities(installedIDs []string, capsules []Capsule) []Activity {
	byID := make(map[string]*Capsule, len(capsules))
	for i := range capsules {
		if _, ok := byID[capsules[i].ID]; !ok {
			byID[capsules[i].ID] = &capsules[i]
		}
	}

	activities := []Activity{}
	seen := make(map[string]bool)
	for _, id := range installedIDs {
		c, ok := byID[id]
		if !ok {
			continue
		}
		for _, a := range c.Activities {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			activities = append(activities, a.Clone())
		}
	}
	return activities
}

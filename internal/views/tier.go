// Package views turns fetched records into what the pages display. Nothing
// here touches the network.
package views

// Tier is a loyalty level reached at MinPoints.
type Tier struct {
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

// Tiers in ascending order of threshold.
var Tiers = []Tier{
	{Name: "Bronze", MinPoints: 0},
	{Name: "Silver", MinPoints: 1000},
	{Name: "Gold", MinPoints: 3000},
	{Name: "Platinum", MinPoints: 10000},
}

// TierStanding describes where a balance sits in the tier table.
type TierStanding struct {
	Points       int     `json:"points"`
	Current      Tier    `json:"current"`
	Next         *Tier   `json:"next,omitempty"`
	PointsToNext int     `json:"points_to_next"`
	Progress     float64 `json:"progress"`
}

// TierFor returns the highest tier whose threshold is at most points.
func TierFor(points int) Tier {
	current := Tiers[0]
	for _, t := range Tiers {
		if points >= t.MinPoints {
			current = t
		}
	}
	return current
}

// PointsToNext returns how many points are missing for the next tier. ok is
// false at the top tier.
func PointsToNext(points int) (int, bool) {
	for _, t := range Tiers {
		if t.MinPoints > points {
			return t.MinPoints - points, true
		}
	}
	return 0, false
}

// Standing combines tier, next tier and progress percentage toward it.
func Standing(points int) TierStanding {
	s := TierStanding{Points: points, Current: TierFor(points), Progress: 100}
	missing, ok := PointsToNext(points)
	if !ok {
		return s
	}
	for i := range Tiers {
		if Tiers[i].MinPoints > points {
			next := Tiers[i]
			s.Next = &next
			break
		}
	}
	s.PointsToNext = missing
	span := s.Next.MinPoints - s.Current.MinPoints
	gained := points - s.Current.MinPoints
	if gained < 0 {
		gained = 0
	}
	s.Progress = float64(gained) * 100 / float64(span)
	return s
}

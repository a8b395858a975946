package calculator

import (
	"sort"

	"cohort-retention/pkg/models"
)

// PurchaseDistribution counts distinct orders per user over qualifying lines and
// histograms those counts. Every observed count gets a bucket; capping is left to
// the display. It returns nil when no line qualifies.
func PurchaseDistribution(lines []models.OrderLine, p models.Params) *models.PurchaseDistribution {
	valid := qualifying(lines, statusesOrDefault(p.ValidStatuses), p.Range)
	if len(valid) == 0 {
		return nil
	}

	ordersByUser := make(map[string]map[string]struct{})
	for _, l := range valid {
		o, ok := ordersByUser[l.UserID]
		if !ok {
			o = make(map[string]struct{})
			ordersByUser[l.UserID] = o
		}
		o[l.OrderID] = struct{}{}
	}

	usersByCount := make(map[int]int)
	for _, o := range ordersByUser {
		usersByCount[len(o)]++
	}

	d := &models.PurchaseDistribution{
		Buckets:    make([]models.PurchaseCountBucket, 0, len(usersByCount)),
		TotalUsers: len(ordersByUser),
	}
	for n, users := range usersByCount {
		d.Buckets = append(d.Buckets, models.PurchaseCountBucket{Purchases: n, Users: users})
	}
	sort.Slice(d.Buckets, func(i, j int) bool { return d.Buckets[i].Purchases < d.Buckets[j].Purchases })

	d.OneTimeUsers = usersByCount[1]
	d.RepeatPurchasers = d.TotalUsers - d.OneTimeUsers
	d.RepeatShare = ratio(d.RepeatPurchasers, d.TotalUsers)
	return d
}

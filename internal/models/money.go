// internal/models/money.go
package models

// ProRate prices duration minutes at hourlyCents per hour, rounding half up to the cent.
func ProRate(hourlyCents int64, durationMinutes int) int64 {
	if hourlyCents <= 0 || durationMinutes <= 0 {
		return 0
	}
	return (hourlyCents*int64(durationMinutes) + 30) / 60
}

// SplitShares divides total into n shares. Every share is total/n except the
// first, which also carries the remainder, so the shares always sum to total.
func SplitShares(total int64, n int) (perPerson int64, shares []int64) {
	if n <= 0 {
		return 0, nil
	}
	perPerson = total / int64(n)
	shares = make([]int64, n)
	for i := range shares {
		shares[i] = perPerson
	}
	shares[0] += total - perPerson*int64(n)
	return perPerson, shares
}

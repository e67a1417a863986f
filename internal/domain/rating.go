package domain

import "fmt"

// Total returns the number of ratings across all buckets.
func (r ProductRating) Total() int {
	return r.OneStar + r.TwoStar + r.ThreeStar + r.FourStar + r.FiveStar
}

// Average returns Σ(i*count_i)/Σcount_i, or 0 when there are no ratings.
func (r ProductRating) Average() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	sum := r.OneStar + 2*r.TwoStar + 3*r.ThreeStar + 4*r.FourStar + 5*r.FiveStar
	return float64(sum) / float64(total)
}

// BucketColumn returns the column holding the counter for a 1..5 star rating.
func BucketColumn(stars int) (string, error) {
	switch stars {
	case 1:
		return "one_star", nil
	case 2:
		return "two_star", nil
	case 3:
		return "three_star", nil
	case 4:
		return "four_star", nil
	case 5:
		return "five_star", nil
	}
	return "", fmt.Errorf("rating %d out of range", stars)
}

// Add increments the bucket for stars in memory.
func (r *ProductRating) Add(stars int) {
	switch stars {
	case 1:
		r.OneStar++
	case 2:
		r.TwoStar++
	case 3:
		r.ThreeStar++
	case 4:
		r.FourStar++
	case 5:
		r.FiveStar++
	}
}

// StarFill describes how a star rating widget renders an average: the count
// of full stars, whether a half star follows, and the empty remainder.
type StarFill struct {
	Full  int  `json:"full"`
	Half  bool `json:"half"`
	Empty int  `json:"empty"`
}

// Stars rounds avg to the nearest half star on a five-star scale.
func Stars(avg float64) StarFill {
	if avg < 0 {
		avg = 0
	}
	if avg > 5 {
		avg = 5
	}
	halves := int(avg*2 + 0.5)
	f := StarFill{Full: halves / 2, Half: halves%2 == 1}
	f.Empty = 5 - f.Full
	if f.Half {
		f.Empty--
	}
	return f
}

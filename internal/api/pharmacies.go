package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/alloci/internal/model"
)

// defaultNearbyKM matches the backend's max_km default.
const defaultNearbyKM = 10.0

// defaultNearMeKM is the directory radius used for "near me" searches.
const defaultNearMeKM = 5.0

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PharmaciesNearby lists pharmacies around a point, closest first.
func (c *Client) PharmaciesNearby(ctx context.Context, q model.NearbyQuery) ([]model.Pharmacy, error) {
	maxKM := q.MaxKM
	if maxKM <= 0 {
		maxKM = defaultNearbyKM
	}

	v := url.Values{}
	v.Set("lat", formatFloat(q.Lat))
	v.Set("lng", formatFloat(q.Lng))
	v.Set("max_km", formatFloat(maxKM))
	if q.DutyOnly {
		v.Set("duty_only", "true")
	}

	var out []model.Pharmacy
	if err := c.get(ctx, "/pharmacies/nearby", v, &out); err != nil {
		return nil, fmt.Errorf("listing nearby pharmacies: %w", err)
	}
	return out, nil
}

// Pharmacies lists the pharmacies directory.
func (c *Client) Pharmacies(ctx context.Context, q model.DirectoryQuery) ([]model.Pharmacy, error) {
	v := url.Values{}
	if q.OnDuty || q.Near != nil {
		v.Set("on_duty", "true")
	}
	switch {
	case q.Near != nil:
		maxKM := q.MaxKM
		if maxKM <= 0 {
			maxKM = defaultNearMeKM
		}
		v.Set("near_lat", formatFloat(q.Near.Lat))
		v.Set("near_lng", formatFloat(q.Near.Lng))
		v.Set("max_km", formatFloat(maxKM))
	case q.City != "":
		v.Set("city", q.City)
	}

	var out []model.Pharmacy
	if err := c.get(ctx, "/pharmacies", v, &out); err != nil {
		return nil, fmt.Errorf("listing pharmacies: %w", err)
	}
	return out, nil
}

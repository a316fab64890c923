// Package cleaning turns raw delivery orders into the feature records the
// preprocessor was fitted on.
package cleaning

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/deliveryeta/registryops/pkg/entities"
)

// ErrRejected is returned for orders the training data excluded: riders under
// 18 and the out of range rating of six stars.
var ErrRejected = errors.New("order rejected by data cleaning")

var renamed = map[string]string{
	"Delivery_person_ID":          "rider_id",
	"Delivery_person_Age":         "age",
	"Delivery_person_Ratings":     "ratings",
	"Delivery_location_latitude":  "delivery_latitude",
	"Delivery_location_longitude": "delivery_longitude",
	"Time_Orderd":                 "order_time",
	"Time_Order_picked":           "order_picked_time",
	"Weatherconditions":           "weather",
	"Road_traffic_density":        "traffic",
	"City":                        "city_type",
}

// ColumnName maps a dataset column to the name used after cleaning.
func ColumnName(field string) string {
	if name, ok := renamed[field]; ok {
		return name
	}

	return strcase.ToSnake(field)
}

var coordinates = []string{
	"restaurant_latitude",
	"restaurant_longitude",
	"delivery_latitude",
	"delivery_longitude",
}

var lowercased = []string{"traffic", "type_of_order", "type_of_vehicle", "festival", "city_type"}

var dropped = []string{
	"id",
	"rider_id",
	"order_date",
	"order_time",
	"order_picked_time",
	"restaurant_latitude",
	"restaurant_longitude",
	"delivery_latitude",
	"delivery_longitude",
}

// Clean renames and cleans a raw order.
func Clean(order *Order) (entities.Record, error) {
	record := entities.Record{}
	for field, value := range order.fields() {
		record[ColumnName(field)] = value
	}

	for column, value := range record {
		if entities.IsMissing(value) {
			record[column] = nil
		}
	}

	if err := cleanRider(record); err != nil {
		return nil, err
	}

	cleanLocation(record)

	if err := cleanDate(record); err != nil {
		return nil, err
	}

	if err := cleanTimes(record); err != nil {
		return nil, err
	}

	if weather, ok := record.String("weather"); ok {
		weather = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(weather, "conditions ")))
		if entities.IsMissing(weather) {
			record["weather"] = nil
		} else {
			record["weather"] = weather
		}
	}

	for _, column := range lowercased {
		if value, ok := record.String(column); ok {
			record[column] = strings.ToLower(strings.TrimSpace(value))
		}
	}

	record["multiple_deliveries"] = floatOrNil(record, "multiple_deliveries")

	for _, column := range dropped {
		delete(record, column)
	}

	return record, nil
}

func floatOrNil(record entities.Record, column string) any {
	if value, ok := record.Float(column); ok {
		return value
	}

	return nil
}

func cleanRider(record entities.Record) error {
	record["age"] = floatOrNil(record, "age")
	record["ratings"] = floatOrNil(record, "ratings")

	if age, ok := record.Float("age"); ok && age < 18 {
		return fmt.Errorf("%w: rider age %v is below 18", ErrRejected, age)
	}

	if ratings, ok := record.Float("ratings"); ok && ratings == 6 {
		return fmt.Errorf("%w: rider rating of 6", ErrRejected)
	}

	record["city_name"] = nil
	if riderID, ok := record.String("rider_id"); ok {
		city, _, _ := strings.Cut(riderID, "RES")
		record["city_name"] = city
	}

	return nil
}

func cleanLocation(record entities.Record) {
	valid := true

	for _, column := range coordinates {
		value, ok := record.Float(column)
		if !ok {
			valid = false

			continue
		}

		value = math.Abs(value)
		record[column] = value

		// Coordinates near zero are placeholders in the source data.
		if value < 1 {
			valid = false
		}
	}

	record["distance"] = nil
	record["distance_type"] = nil

	if !valid {
		return
	}

	distance := Haversine(
		record["restaurant_latitude"].(float64),
		record["restaurant_longitude"].(float64),
		record["delivery_latitude"].(float64),
		record["delivery_longitude"].(float64),
	)

	record["distance"] = distance
	if distanceType := DistanceType(distance); distanceType != "" {
		record["distance_type"] = distanceType
	}
}

func cleanDate(record entities.Record) error {
	value, ok := record.String("order_date")
	if !ok {
		for _, column := range []string{"order_day", "order_month", "order_day_of_week", "is_weekend"} {
			record[column] = nil
		}

		return nil
	}

	date, err := time.Parse("02-01-2006", strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid order date %q: %w", value, err)
	}

	weekend := 0.0
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		weekend = 1
	}

	record["order_day"] = float64(date.Day())
	record["order_month"] = float64(date.Month())
	record["order_day_of_week"] = strings.ToLower(date.Weekday().String())
	record["is_weekend"] = weekend

	return nil
}

var timeLayouts = []string{"15:04:05", "15:04", "15:04:05.999999"}

// ParseTimeOfDay reads an order or pickup time.
func ParseTimeOfDay(value string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return parsed, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid time of day %q: %w", value, err)
}

func cleanTimes(record entities.Record) error {
	record["pickup_time_minutes"] = nil
	record["order_time_hour"] = nil
	record["order_time_of_day"] = nil

	ordered, ok := record.String("order_time")
	if !ok {
		return nil
	}

	orderedAt, err := ParseTimeOfDay(ordered)
	if err != nil {
		return err
	}

	record["order_time_hour"] = float64(orderedAt.Hour())
	record["order_time_of_day"] = TimeOfDay(orderedAt.Hour())

	picked, ok := record.String("order_picked_time")
	if !ok {
		return nil
	}

	pickedAt, err := ParseTimeOfDay(picked)
	if err != nil {
		return err
	}

	// Pickups after midnight wrap around.
	wait := pickedAt.Sub(orderedAt)
	if wait < 0 {
		wait += 24 * time.Hour
	}

	record["pickup_time_minutes"] = wait.Minutes()

	return nil
}

// TimeOfDay buckets the hour an order was placed.
func TimeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "after_midnight"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	case hour < 20:
		return "evening"
	default:
		return "night"
	}
}

// DistanceType buckets a distance in kilometres, empty beyond 25 km.
func DistanceType(distance float64) string {
	switch {
	case distance <= 0:
		return ""
	case distance <= 5:
		return "short"
	case distance <= 10:
		return "medium"
	case distance <= 15:
		return "long"
	case distance <= 25:
		return "very_long"
	default:
		return ""
	}
}

const earthRadiusKm = 6371

// Haversine returns the great circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRadians := func(degrees float64) float64 { return degrees * math.Pi / 180 }

	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

package cleaning

// Order is a raw delivery order as submitted to the prediction endpoint.
// Field names follow the columns of the original delivery dataset.
//
//nolint:tagliatelle
type Order struct {
	ID                        string  `json:"ID"                          validate:"required"`
	DeliveryPersonID          string  `json:"Delivery_person_ID"          validate:"required"`
	DeliveryPersonAge         string  `json:"Delivery_person_Age"`
	DeliveryPersonRatings     string  `json:"Delivery_person_Ratings"`
	RestaurantLatitude        float64 `json:"Restaurant_latitude"         validate:"gte=-90,lte=90"`
	RestaurantLongitude       float64 `json:"Restaurant_longitude"        validate:"gte=-180,lte=180"`
	DeliveryLocationLatitude  float64 `json:"Delivery_location_latitude"  validate:"gte=-90,lte=90"`
	DeliveryLocationLongitude float64 `json:"Delivery_location_longitude" validate:"gte=-180,lte=180"`
	OrderDate                 string  `json:"Order_Date"                  validate:"required,orderDate"`
	TimeOrdered               string  `json:"Time_Orderd"                 validate:"timeOfDayOrMissing"`
	TimeOrderPicked           string  `json:"Time_Order_picked"           validate:"timeOfDayOrMissing"`
	WeatherConditions         string  `json:"Weatherconditions"`
	RoadTrafficDensity        string  `json:"Road_traffic_density"`
	VehicleCondition          int     `json:"Vehicle_condition"           validate:"gte=0"`
	TypeOfOrder               string  `json:"Type_of_order"`
	TypeOfVehicle             string  `json:"Type_of_vehicle"`
	MultipleDeliveries        string  `json:"multiple_deliveries"`
	Festival                  string  `json:"Festival"`
	City                      string  `json:"City"`
}

// fields returns the order keyed by its dataset column names.
func (o *Order) fields() map[string]any {
	return map[string]any{
		"ID":                          o.ID,
		"Delivery_person_ID":          o.DeliveryPersonID,
		"Delivery_person_Age":         o.DeliveryPersonAge,
		"Delivery_person_Ratings":     o.DeliveryPersonRatings,
		"Restaurant_latitude":         o.RestaurantLatitude,
		"Restaurant_longitude":        o.RestaurantLongitude,
		"Delivery_location_latitude":  o.DeliveryLocationLatitude,
		"Delivery_location_longitude": o.DeliveryLocationLongitude,
		"Order_Date":                  o.OrderDate,
		"Time_Orderd":                 o.TimeOrdered,
		"Time_Order_picked":           o.TimeOrderPicked,
		"Weatherconditions":           o.WeatherConditions,
		"Road_traffic_density":        o.RoadTrafficDensity,
		"Vehicle_condition":           float64(o.VehicleCondition),
		"Type_of_order":               o.TypeOfOrder,
		"Type_of_vehicle":             o.TypeOfVehicle,
		"multiple_deliveries":         o.MultipleDeliveries,
		"Festival":                    o.Festival,
		"City":                        o.City,
	}
}

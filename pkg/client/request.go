package client

// Method is the HTTP verb of a RequestDescriptor.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// RequestType tags a descriptor with the API call it represents.
type RequestType string

const (
	RequestWeatherForecast RequestType = "weather_forecast"
	RequestCityValidation  RequestType = "city_validation"
)

// RequestDescriptor is a fully resolved, not yet dispatched outbound call.
// Path is the raw URL string; it is percent-encoded at dispatch time.
type RequestDescriptor struct {
	Path        string
	Method      Method
	ContentType string
	Headers     map[string]string
	Type        RequestType
	Body        []byte
}

// NewGetRequest returns a JSON GET descriptor with no headers and no body.
func NewGetRequest(path string, typ RequestType) RequestDescriptor {
	return RequestDescriptor{
		Path:        path,
		Method:      MethodGet,
		ContentType: "application/json",
		Type:        typ,
	}
}

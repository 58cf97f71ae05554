package assistant

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kjstillabower/weather-assistant-proxy/internal/models"
)

// SystemFraming opens every prompt and doubles as the Ollama system message.
const SystemFraming = "You are a helpful weather assistant."

// NoWeatherData replaces the weather block when the dashboard has no snapshot yet.
const NoWeatherData = "No current weather data available"

const notAvailable = "N/A"

const promptFormat = "\n" + SystemFraming + " Answer questions about weather using the following current weather data:\n" +
	"\n" +
	"%s\n" +
	"\n" +
	"User question: %s\n" +
	"\n" +
	"Please provide a helpful, conversational response about the weather. Keep it concise and friendly. Use emojis when appropriate.\n"

const weatherBlockFormat = "\n" +
	"Current Weather Information:\n" +
	"- Location: %s\n" +
	"- Temperature: %s\n" +
	"- Feels Like: %s\n" +
	"- Weather: %s\n" +
	"- Humidity: %s%%\n" +
	"- Wind Speed: %s m/s\n" +
	"- Pressure: %s hPa\n"

// BuildPrompt composes the provider prompt from the user's question and the optional
// snapshot. The output depends only on its input.
func BuildPrompt(req models.AssistantRequest) string {
	return fmt.Sprintf(promptFormat, weatherBlock(req.WeatherData), req.Message)
}

// weatherBlock reads the snapshot leniently. A falsy snapshot (absent, null, false, 0, "")
// means no data; any other value renders a block, with N/A for each field that is
// missing, falsy or of an unusable shape.
func weatherBlock(raw json.RawMessage) string {
	var w any
	if len(raw) == 0 || json.Unmarshal(raw, &w) != nil || !truthy(w) {
		return NoWeatherData
	}

	location := "Unknown"
	if name := field(w, "name"); truthy(name) {
		location = text(name)
	}

	return fmt.Sprintf(weatherBlockFormat,
		location,
		celsius(field(w, "main", "temp")),
		celsius(field(w, "main", "feels_like")),
		reading(field(w, "weather", 0, "description")),
		reading(field(w, "main", "humidity")),
		reading(field(w, "wind", "speed")),
		reading(field(w, "main", "pressure")),
	)
}

// field walks object keys and array indexes, returning nil as soon as a step is missing.
func field(v any, path ...any) any {
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = obj[key]
		case int:
			arr, ok := v.([]any)
			if !ok || key >= len(arr) {
				return nil
			}
			v = arr[key]
		}
	}
	return v
}

// truthy treats null, false, 0, NaN and the empty string as absent.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// celsius renders a temperature rounded to whole degrees, half-up. Numeric strings
// are accepted; values that are not numbers render N/A.
func celsius(v any) string {
	if !truthy(v) {
		return notAvailable
	}
	f := toNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return notAvailable
	}
	return strconv.FormatInt(roundHalfUp(f), 10) + "°C"
}

// reading renders a present value as text, or N/A.
func reading(v any) string {
	if !truthy(v) {
		return notAvailable
	}
	return text(v)
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// text renders a decoded JSON value the way it reads in a sentence.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return number(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// number renders the shortest decimal form, e.g. 72, 4.1, 1012.
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundHalfUp rounds ties toward +Inf: 16.5 -> 17, -2.5 -> -2.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

package diorama

import (
	"fmt"
	"strings"

	"github.com/i474232898/sky-diorama/internal/weather"
)

var weatherEffects = map[weather.Condition]string{
	weather.ConditionClear:    "Crystal clear atmosphere with excellent visibility. Natural bright lighting.",
	weather.ConditionSunny:    "Bright sunbeams casting crisp, defined shadows. Natural daylight colors on all surfaces.",
	weather.ConditionCloudy:   "Soft, diffused light filtering through clouds. Gentle, even shadows.",
	weather.ConditionOvercast: "Heavy cloud cover creating flat, even lighting. Sky is gray but city retains color.",
	weather.ConditionRainy:    "Rain droplets falling visibly, wet glossy surfaces reflecting city colors, puddles on streets.",
	weather.ConditionStormy:   "Dark dramatic clouds above, lightning flashes, heavy rain. City still colorful below.",
	weather.ConditionSnowy:    "Gentle snowfall, white snow on rooftops and streets contrasting with colorful buildings.",
	weather.ConditionFoggy:    "Fog rolling through streets, buildings partially obscured at distance, close buildings sharp.",
	weather.ConditionWindy:    "Trees bending, flags waving, dynamic movement. Full color clarity maintained.",
}

// WeatherEffects returns the atmosphere instruction for a condition,
// falling back to the cloudy entry.
func WeatherEffects(condition weather.Condition) string {
	if effects, ok := weatherEffects[condition]; ok {
		return effects
	}
	return weatherEffects[weather.ConditionCloudy]
}

func lighting(isDay bool) string {
	if isDay {
		return "daytime with natural sunlight"
	}
	return "nighttime with warm artificial city lights and a dark sky"
}

// BuildPrompt renders the image-generation prompt. It is a pure function of
// its inputs: the same arguments always give byte-identical text.
func BuildPrompt(city, country string, condition weather.Condition, temperature int, isDay bool) string {
	locationLine := city
	if country != "" {
		locationLine = city + ", " + country
	}
	temp := fmt.Sprintf("%d°C", temperature)

	var b strings.Builder

	fmt.Fprintf(&b, "Create a beautiful miniature 3D isometric diorama of %s.\n\n", locationLine)

	b.WriteString("CRITICAL REQUIREMENT — CITY IDENTITY:\n")
	fmt.Fprintf(&b, "This diorama MUST be immediately recognizable as %s. ", locationLine)
	b.WriteString("Include the city's most famous and iconic real-world landmarks, buildings, and architectural elements. ")
	b.WriteString("The viewer should be able to identify the city at a glance without reading any text. ")
	fmt.Fprintf(&b, "Do NOT create a generic cityscape — every building and element must reflect the real architecture, culture, and visual identity of %s.\n\n", city)

	b.WriteString("Examples of what this means:\n")
	b.WriteString("- Paris, France: Eiffel Tower, Notre-Dame Cathedral, Arc de Triomphe, Sacré-Cœur, Louvre Pyramid\n")
	b.WriteString("- Porto, Portugal: Torre dos Clérigos, Ponte D. Luís I, colorful houses of Ribeira, São Bento Station\n")
	b.WriteString("- Tokyo, Japan: Tokyo Tower/Skytree, Shibuya Crossing, Senso-ji Temple, Mount Fuji in background\n")
	b.WriteString("- New York, USA: Statue of Liberty, Empire State Building, Central Park, Brooklyn Bridge\n")
	b.WriteString("- London, UK: Big Ben, Tower Bridge, London Eye, Buckingham Palace\n")
	b.WriteString("- Rio de Janeiro, Brazil: Christ the Redeemer, Sugarloaf Mountain, Copacabana Beach\n\n")

	b.WriteString("COMPOSITION:\n")
	b.WriteString("- 45-degree top-down isometric perspective\n")
	b.WriteString("- Square 1:1 aspect ratio\n")
	b.WriteString("- The city's 3-5 most iconic landmarks should be prominently featured as the focal points\n")
	fmt.Fprintf(&b, "- Surrounding buildings should match the real architectural style of %s (not generic)\n", city)
	b.WriteString("- Streets, vegetation, and urban elements should reflect the real city's character\n\n")

	b.WriteString("VISUAL STYLE:\n")
	b.WriteString("- Adorable miniature tilt-shift diorama aesthetic\n")
	b.WriteString("- Soft, refined textures with realistic PBR materials\n")
	fmt.Fprintf(&b, "- %s lighting\n", lighting(isDay))
	b.WriteString("- Highly detailed, professional quality, award-winning 3D illustration\n")
	b.WriteString("- Clean, minimalistic composition with neutral background\n")
	b.WriteString("- IMPORTANT: Use only natural, realistic colors. No filters, tints, or color effects applied.\n\n")

	b.WriteString("WEATHER & ATMOSPHERE (current conditions):\n")
	fmt.Fprintf(&b, "- Weather: %s, %s\n", condition, temp)
	fmt.Fprintf(&b, "- %s\n", WeatherEffects(condition))
	b.WriteString("- Weather effects should be naturally integrated into the scene (not overlaid)\n")
	b.WriteString("- IMPORTANT: Preserve natural colors of all elements. No color filters or mood-based color shifts.\n\n")

	b.WriteString("TEXT OVERLAY:\n")
	b.WriteString("At the top-center of the image, place:\n")
	fmt.Fprintf(&b, "1. \"%s\" in large, bold, elegant text\n", city)
	fmt.Fprintf(&b, "2. A weather icon representing %s just beneath the city name\n", condition)
	fmt.Fprintf(&b, "3. The date and \"%s\" in medium text below the icon\n", temp)
	b.WriteString("All text must be centered, with consistent spacing. Text may subtly overlap the top edges of buildings. ")
	b.WriteString("Use white or light-colored text with a subtle shadow for readability.\n\n")

	b.WriteString("COLOR FIDELITY (CRITICAL):\n")
	b.WriteString("The diorama MUST have rich, natural, vibrant colors throughout. ")
	b.WriteString("Every building, landmark, water body, and vegetation element should display its own distinct, realistic color. ")
	b.WriteString("Do NOT apply any sepia, golden, warm wash, cool wash, or monochromatic color filter over the image. ")
	b.WriteString("Weather conditions should affect lighting direction and shadow intensity, but NEVER wash out or uniformly tint the color palette. ")
	b.WriteString("Water should be blue/teal. Vegetation should be green. Rooftops should have varied, realistic colors. ")
	b.WriteString("The scene should look like a high-quality product photograph of a miniature — not a filtered Instagram photo.\n\n")

	fmt.Fprintf(&b, "DO NOT generate a generic city. This MUST look like %s specifically.", locationLine)

	return b.String()
}

package browser

import "math/rand"

// Profile is the (user-agent, viewport) pair a context presents to
// the page. One is chosen uniformly at random per context, with the
// viewport jittered so repeated contexts do not share an exact size.
type Profile struct {
	Name      string
	UserAgent string
	Width     int
	Height    int
	Mobile    bool
}

var profiles = []Profile{
	{
		Name:      "Desktop Chrome",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		Width:     1366,
		Height:    768,
	},
	{
		Name:      "Desktop Edge",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0",
		Width:     1536,
		Height:    864,
	},
	{
		Name:      "Desktop Firefox",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
		Width:     1440,
		Height:    900,
	},
	{
		Name:      "Mobile Android",
		UserAgent: "Mozilla/5.0 (Linux; Android 12; Pixel 5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Mobile Safari/537.36",
		Width:     393,
		Height:    851,
		Mobile:    true,
	},
}

const viewportJitter = 40

// randomProfile picks a device profile and applies ±40px of viewport
// jitter.
func randomProfile() Profile {
	p := profiles[rand.Intn(len(profiles))]
	p.Width += rand.Intn(2*viewportJitter+1) - viewportJitter
	p.Height += rand.Intn(2*viewportJitter+1) - viewportJitter
	return p
}

// signalScript scrubs the automation signals that survive stealth's
// own patches.
const signalScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
`

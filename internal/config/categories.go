package config

// CategoryWeights orders command categories in help output and dashboard
// listings. Lower weight sorts first.
var CategoryWeights = map[string]int{
	"🕯️ Information": 0,
	"📢 Utilities":    10,
	"⚙️ Settings":    50,
	"🛠️ Maintenance": 60,
}

package dashboard

// FeedID identifica un feed del dashboard.
type FeedID string

const (
	FeedBots FeedID = "bots"
	FeedLogs FeedID = "logs"
)

// feedOrder es el orden de carga de LoadAll.
var feedOrder = []FeedID{FeedBots, FeedLogs}

// ParseFeedID valida un nombre de feed escrito por el usuario.
func ParseFeedID(s string) (FeedID, bool) {
	switch FeedID(s) {
	case FeedBots, FeedLogs:
		return FeedID(s), true
	}
	return "", false
}

// State es el estado de un feed dentro del controller.
type State int

const (
	StateIdle    State = iota // nunca se pidió
	StateLoading              // fetch en vuelo
	StateReady                // hay datos (quizás viejos)
	StateEmpty                // el primer fetch falló
	StateStopped              // controller destruido
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEmpty:
		return "empty"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

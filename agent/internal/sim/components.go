package sim

// EnemyController is a domain component with a mix of exported and
// unexported movement fields, as game scripts tend to have.
type EnemyController struct {
	chaseSpeed  float64
	MoveSpeed   float64
	PatrolSpeed float32
	attackRange float64
	isHostile   bool
}

// AIBrain is a second domain component. Discovery only scans the first
// domain component it meets.
type AIBrain struct {
	ThinkSpeed float64
	moveBias   float64
	Aggression float64
}

// Health has no rate fields.
type Health struct {
	Max     float64
	Current float64
}

var kinds = map[string]func() any{
	"enemy_controller": func() any { return &EnemyController{} },
	"ai_brain":         func() any { return &AIBrain{} },
	"health":           func() any { return &Health{} },
}

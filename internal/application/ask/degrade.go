package ask

// Outcome 表示一次可降级步骤的结果：要么正常产出值，要么带原因地退回兜底值。
// 调用方总能拿到可用的 Value；Degraded 仅用于观测与日志，不改变控制流。
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Reason   string
}

// Ok 构造正常结果。
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Fallback 构造降级结果，reason 描述触发降级的原因。
func Fallback[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Degraded: true, Reason: reason}
}

package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Viewport 是共享画布的平移/缩放仿射矩阵 [a, b, c, d, e, f]。
type Viewport [6]float64

// IdentityViewport 返回单位矩阵，新房间的默认视口。
func IdentityViewport() Viewport {
	return Viewport{1, 0, 0, 1, 0, 0}
}

// UnmarshalJSON 要求恰好 6 个有限数字。
// 默认的数组解码会静默补零或丢弃多余元素，这里显式拒绝。
func (v *Viewport) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("viewport must be an array of numbers: %w", err)
	}
	if len(values) != len(v) {
		return fmt.Errorf("viewport must have %d elements, got %d", len(v), len(values))
	}
	for i, f := range values {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("viewport element %d is not finite", i)
		}
		v[i] = f
	}
	return nil
}

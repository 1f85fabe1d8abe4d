package service

import (
	"fmt"
	"math/rand"
)

// userColors 是光标和头像使用的固定调色板，同一房间内不保证唯一
var userColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57",
	"#FF9FF3", "#54A0FF", "#5F27CD", "#00D2D3", "#FF9F43",
	"#10AC84", "#EE5A24", "#0C2461", "#1DD1A1", "#FD79A8",
}

var (
	usernameAdjectives = []string{
		"Cool", "Smart", "Creative", "Awesome", "Brilliant",
		"Amazing", "Fantastic", "Super", "Quick", "Clever",
	}
	usernameNouns = []string{
		"Designer", "Artist", "Creator", "Maker", "Builder",
		"Thinker", "Innovator", "Explorer", "Dreamer", "Visionary",
	}
)

// UserColors 返回调色板的副本
func UserColors() []string {
	out := make([]string, len(userColors))
	copy(out, userColors)
	return out
}

func randomUserColor() string {
	return userColors[rand.Intn(len(userColors))]
}

// randomUsername 生成类似 "CleverArtist42" 的昵称
func randomUsername() string {
	adj := usernameAdjectives[rand.Intn(len(usernameAdjectives))]
	noun := usernameNouns[rand.Intn(len(usernameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, rand.Intn(100))
}

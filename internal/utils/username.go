package utils

import (
	"fmt"
	"math/rand"
)

var (
	guestAdjectives = []string{"Happy", "Lucky", "Clever", "Swift", "Bright", "Cool", "Wild", "Calm"}
	guestNouns      = []string{"Panda", "Tiger", "Eagle", "Dolphin", "Fox", "Wolf", "Bear", "Lion"}
)

// GenerateUsername returns a throwaway guest identity for unauthenticated
// connections, ex: "SwiftPanda042".
func GenerateUsername() string {
	return fmt.Sprintf("%s%s%03d",
		guestAdjectives[rand.Intn(len(guestAdjectives))],
		guestNouns[rand.Intn(len(guestNouns))],
		rand.Intn(1000),
	)
}

package cache

import "fmt"

func VideoKey(videoID string) string {
	return fmt.Sprintf("video:%s", videoID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

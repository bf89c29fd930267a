package checkpoint

import "strconv"

const cursorPrefix = "cursor:"

// Key layout: "cursor:<runKey>:<shardID>".

func makeRunPrefix(runKey string) []byte {
	return []byte(cursorPrefix + runKey + ":")
}

func makeCursorKey(runKey string, shardID int) []byte {
	return append(makeRunPrefix(runKey), []byte(strconv.Itoa(shardID))...)
}

package test

import (
	"context"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func dialFeed(ctx context.Context, t *testing.T, serverURL, groupCode, bearer string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(serverURL, "http://", "ws://", 1) + "/ws/groups/" + groupCode + "?token=" + bearer
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	return conn
}

func closeFeed(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func readFeedEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var event map[string]any
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		t.Fatalf("read feed event: %v", err)
	}
	return event
}

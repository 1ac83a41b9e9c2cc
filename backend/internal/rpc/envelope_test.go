package rpc

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeInvariant(t *testing.T) {
	ok := OK(map[string]string{"name": "r1"})
	if !ok.Success || ok.Error != "" {
		t.Fatalf("OK broke the invariant: %+v", ok)
	}

	fail := Fail("boom")
	if fail.Success || fail.Error != "boom" {
		t.Fatalf("Fail broke the invariant: %+v", fail)
	}
	if fail.Data != nil {
		t.Fatalf("failure envelope must not carry data")
	}
}

func TestEnvelopeDecode(t *testing.T) {
	type room struct {
		Name string `json:"name"`
	}
	resp := OK(room{Name: "r1"})

	// 走一遍线上序列化
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire Response
	if err := json.Unmarshal(b, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var got room
	if err := wire.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "r1" {
		t.Fatalf("unexpected decode result: %+v", got)
	}
}

func TestOKMessage(t *testing.T) {
	resp := OKMessage(nil, "room deleted")
	if !resp.Success || resp.Message != "room deleted" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	// 纯消息成功不携带 data
	if resp.Data != nil {
		t.Fatalf("message-only envelope must not carry data: %+v", resp)
	}
}

package rpc

import "encoding/json"

// Response：跨异步边界的统一响应信封。
// 不变量：Success == true 时 Error 必须为空；Data 只在 Success 时有意义。
// 后端业务失败（Success=false）是正常返回值，不是 Go error；
// 传输层失败（超时/通道错误）才以 error 形式抛给调用方。
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

func OK(data any) Response {
	if data == nil {
		return Response{Success: true}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Fail("marshal response data: " + err.Error())
	}
	return Response{Success: true, Data: b}
}

func OKMessage(data any, message string) Response {
	resp := OK(data)
	if resp.Success {
		resp.Message = message
	}
	return resp
}

func Fail(errMsg string) Response {
	return Response{Success: false, Error: errMsg}
}

// Decode 把 Data 解析到 dest
func (r Response) Decode(dest any) error {
	return json.Unmarshal(r.Data, dest)
}

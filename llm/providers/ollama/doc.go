// Package ollama 接入 Ollama 本地推理服务的 /api/generate 接口。
//
// 每次请求以非流式方式调用，聊天消息按顺序拼接为单个 prompt；
// 调用过程记录 OpenTelemetry span。
package ollama

/*
# 概述

包 openai 通过官方兼容 SDK github.com/sashabaranov/go-openai 接入
OpenAI Chat Completions API。

# 核心结构体

  - Provider — 实现 llm.Provider；Completion 调用 CreateChatCompletion，
    HealthCheck 调用 ListModels

# 错误映射

SDK 返回的 *openai.APIError 与 *openai.RequestError 按 HTTP 状态码
经 providers.MapHTTPError 转换为 llm.Error，网络层错误转换为可重试的
UPSTREAM_ERROR。
*/
package openai

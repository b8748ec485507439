// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
# 概述

包 providers 提供各模型后端共享的适配辅助，是具体 Provider 实现的公共基础层。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - OpenAICompat* 系列 — OpenAI 兼容 API 的请求/响应结构体

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - TransportError — 网络错误统一映射为可重试的上游错误
  - ReadErrorMessage — 兼容 OpenAI 与 Ollama 两种错误体
  - ToLLMChatResponse — OpenAI 兼容响应到 llm.ChatResponse 的转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）

# 子包

  - openaicompat — 原始 HTTP 实现，适配本地 vLLM 与 V-API
  - openai — 基于 go-openai 的官方 OpenAI 客户端
  - ollama — Ollama /api/generate 客户端
*/
package providers

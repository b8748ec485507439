/*
包 cache 提供搜索评估分数（value）的共享缓存后端。

# 概述

search 包默认为每个样本使用进程内 map 缓存；当多个 worker 或多次运行
需要共享评估结果时，使用本包提供的实现。两种后端均实现
search.ValueCache，键为完整的评估 prompt。

# 核心类型

  - SharedValueCache：基于 github.com/patrickmn/go-cache 的进程内缓存，
    永不过期，可并发访问。
  - RedisValueCache：基于 go-redis 的跨进程缓存，键格式为
    thoughtflow:value:<sha256(prompt)>，支持 TTL、TLS 与后台健康检查。
  - Config：后端选择与 Redis 连接参数。

# 主要能力

  - New 按 Config.Backend 构造 Store（memory / redis）。
  - Close 安全释放底层连接，重复调用无副作用。
*/
package cache

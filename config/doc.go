// Package config 提供 Thoughtflow 的配置管理功能。
//
// 配置按 默认值 → .env → YAML 文件 → THOUGHTFLOW_* 环境变量 的顺序合并，
// 最后由 validator 标签与 Config.Validate 的跨字段检查完成校验。
package config

// Copyright (c) Thoughtflow Authors.
// Licensed under the MIT License.

/*
Package checkpoint 持久化每个样本的求解结果，用于断点续跑。

每条 Record 对应一个已完成的样本。批处理启动时先 Load 已有记录，
按 ExampleID 跳过已完成的样本，并用其中的标签参与最终评估。

# 存储后端

  - FileStore: JSON Lines 文件，只追加；空行忽略，损坏行告警后跳过
  - GormStore: gorm + sqlite/postgres/mysql，启动时 AutoMigrate
  - MemoryStore: 进程内存，用于测试
*/
package checkpoint

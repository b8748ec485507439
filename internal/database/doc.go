/*
包 database 提供基于 GORM 的数据库连接池管理，供检查点存储使用。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close() 等生命周期方法。
  - PoolConfig：连接池配置。
  - TransactionFunc：事务回调函数类型。

# 主要能力

  - Open 按驱动名（sqlite / postgres / mysql）打开数据库；
    SQLite 使用纯 Go 的 github.com/glebarez/sqlite，无需 cgo。
  - 内存 SQLite 强制单连接。
  - 可选后台健康检查。
  - WithTransactionRetry 对死锁、序列化失败等瞬时错误指数退避重试。
*/
package database

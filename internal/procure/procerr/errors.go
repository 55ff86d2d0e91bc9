// Package procerr 采购核心错误分类
// 所有可变更操作要么完整成功，要么以下列类别之一失败且不产生部分写入
package procerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 入参缺失/非法，未尝试任何写入
	ErrValidation = errors.New("validation error")
	// ErrNotFound 引用的记录不存在或已软删除
	ErrNotFound = errors.New("not found")
	// ErrPermission 操作者角色/身份对该记录无权执行该动作
	ErrPermission = errors.New("permission denied")
	// ErrStateConflict 当前状态下不允许该操作
	ErrStateConflict = errors.New("state conflict")
	// ErrDependency 价格/通讯录等下游查询失败，操作中止
	ErrDependency = errors.New("dependency unavailable")
	// ErrPersistence 事务提交失败，已整体回滚
	ErrPersistence = errors.New("persistence error")
)

func Validationf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, a...))
}

func NotFoundf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

func Permissionf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermission, fmt.Sprintf(format, a...))
}

func StateConflictf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, a...))
}

func Dependencyf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDependency, fmt.Sprintf(format, a...))
}

func Persistencef(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPersistence, fmt.Sprintf(format, a...))
}

// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"

	"mindful-path-go/internal/model"
	"mindful-path-go/pkg/es"
)

// SearchService 提供对归档消息的全文检索。
// 索引由归档管道在会话关闭后异步建立，检索结果只覆盖已关闭的会话。
type SearchService interface {
	SearchMessages(ctx context.Context, query string) ([]model.MessageDocument, error)
}

type searchService struct {
	indexName string
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(indexName string) SearchService {
	return &searchService{indexName: indexName}
}

func (s *searchService) SearchMessages(ctx context.Context, query string) ([]model.MessageDocument, error) {
	if query == "" {
		return nil, errors.New("检索关键词不能为空")
	}
	return es.SearchMessages(ctx, s.indexName, query, 50)
}

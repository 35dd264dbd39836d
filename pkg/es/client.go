// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"mindful-path-go/internal/config"
	"mindful-path-go/internal/model"
	"mindful-path-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 如果 res.StatusCode 是 200，说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 会话消息索引：消息正文分词检索，其余字段用于过滤与排序
	mapping := `{
		"mappings": {
			"properties": {
				"conversation_id": { "type": "long" },
				"sender": { "type": "keyword" },
				"message": { "type": "text" },
				"sent_at": { "type": "date" }
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		return fmt.Errorf("创建索引 '%s' 失败，状态码: %d", indexName, res.StatusCode)
	}
	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// IndexMessages 将一个会话的全部消息批量写入检索索引。
func IndexMessages(ctx context.Context, indexName string, docs []model.MessageDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_index":"%s"}}`, indexName)
		buf.WriteString(meta)
		buf.WriteByte('\n')
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		buf.Write(body)
		buf.WriteByte('\n')
	}

	res, err := ESClient.Bulk(bytes.NewReader(buf.Bytes()), ESClient.Bulk.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("批量写入消息索引失败，状态码: %d", res.StatusCode)
	}
	return nil
}

// SearchMessages 对消息正文执行全文检索，返回命中的消息文档。
func SearchMessages(ctx context.Context, indexName, query string, size int) ([]model.MessageDocument, error) {
	var body bytes.Buffer
	searchBody := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"message": query,
			},
		},
		"sort": []map[string]interface{}{
			{"sent_at": map[string]string{"order": "desc"}},
		},
	}
	if err := json.NewEncoder(&body).Encode(searchBody); err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{indexName},
		Body:  &body,
	}
	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("检索消息失败，状态码: %d", res.StatusCode)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source model.MessageDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	docs := make([]model.MessageDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

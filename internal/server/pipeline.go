// Package server はリクエスト処理パイプラインを組み立て、HTTPサーバーを起動します。
package server

import (
	"github.com/gin-gonic/gin"
)

// Stage はパイプラインの1段です。名前は順序の確認とログのために使います。
type Stage struct {
	Name     string
	Handlers gin.HandlersChain
}

// Pipeline は登録順に実行されるステージの列です。
// 各ステージは c.Next() で次へ進むか、c.Abort() で打ち切ります。
type Pipeline struct {
	stages []Stage
}

// Use はステージを末尾に追加します。
func (p *Pipeline) Use(name string, handlers ...gin.HandlerFunc) *Pipeline {
	p.stages = append(p.stages, Stage{Name: name, Handlers: handlers})
	return p
}

// Names はステージ名を実行順に返します。
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Install は全ステージをグローバルミドルウェアとして登録します。
// NoRoute のハンドラーにも同じステージが適用されます。
func (p *Pipeline) Install(r gin.IRoutes) {
	for _, s := range p.stages {
		r.Use(s.Handlers...)
	}
}

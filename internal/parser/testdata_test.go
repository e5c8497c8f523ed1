package parser

import (
	"log/slog"
	"os"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const bookURL = "https://book.douban.com/subject/4913064/"

const bookHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head><meta charset="utf-8"><title>活着 (豆瓣)</title></head>
<body>
<div id="wrapper">
<h1>
    <span property="v:itemreviewed">活着</span>
    <div class="clear"></div>
</h1>
<div id="content">
<div id="info" class="">
    <span>
      <span class="pl"> 作者</span>:
        <a class="" href="/search/yuhua">余华</a>
    </span><br/>
    <span>
      <span class="pl"> 译者</span>:
        <a href="/search/a">白 睿</a>
         /
        <a href="/search/b">叶 琳</a>
    </span><br/>
    <span class="pl">出版社:</span> <a href="https://book.douban.com/press/2099">作家出版社</a><br/>
    <span class="pl">出品方:</span>&nbsp;<a href="https://book.douban.com/producers/1">新经典文化</a><br/>
    <span class="pl">原作名:</span> To Live<br/>
    <span class="pl">出版年:</span> 2012-8-1<br/>
    <span class="pl">页数:</span> 191<br/>
    <span class="pl">定价:</span> 20.00元<br/>
    <span class="pl">装帧:</span> 平装<br/>
    <span class="pl">丛书:</span>&nbsp;<a href="https://book.douban.com/series/1">余华作品（2012版）</a><br/>
    <span class="pl">ISBN:</span> 9787506365437<br/>
    <span class="pl">印次:</span> 3<br/>
    <span class="pl">副标题:</span><br/>
</div>
<div class="rating_wrap clearbox" rel="v:rating">
    <div class="rating_logo">豆瓣评分</div>
    <div class="rating_self clearfix" typeof="v:Rating">
        <strong class="ll rating_num " property="v:average"> 9.4 </strong>
        <span property="v:best" content="10.0"></span>
        <div class="rating_right ">
            <div class="ll bigstar45"></div>
            <div class="rating_sum">
                <span class="">
                    <a href="comments" class="rating_people"><span property="v:votes">697325</span>人评价</a>
                </span>
            </div>
        </div>
    </div>
    <span class="stars5 starstop" title="力荐">
        5星
    </span>
    <div class="power" style="width:64px"></div>
    <span class="rating_per">73.2%</span>
    <br>
    <span class="stars4 starstop" title="推荐">
        4星
    </span>
    <div class="power" style="width:19px"></div>
    <span class="rating_per">21.6%</span>
    <br>
    <span class="stars3 starstop" title="还行">
        3星
    </span>
    <div class="power" style="width:4px"></div>
    <span class="rating_per">4.6%</span>
    <br>
    <span class="stars2 starstop" title="较差">
        2星
    </span>
    <div class="power" style="width:0px"></div>
    <span class="rating_per">0.4%</span>
    <br>
    <span class="stars1 starstop" title="很差">
        1星
    </span>
    <div class="power" style="width:0px"></div>
    <span class="rating_per">0.2%</span>
    <br>
</div>
<div class="related_info">
    <h2><span class="">内容简介</span></h2>
    <div class="indent" id="link-report">
        <div class="">
            <div class="intro">
                <p>《活着》讲述了农村人福贵悲惨的人生遭遇。</p>
                <p>福贵本是个阔少爷。</p>
            </div>
        </div>
    </div>
    <h2><span class="">作者简介</span></h2>
    <div class="indent ">
        <div class="">
            <div class="intro">
                <p>余华，1960年生，浙江海盐人。</p>
                <p>著有《兄弟》等。</p>
            </div>
        </div>
    </div>
    <h2><span class="">目录</span></h2>
    <div class="indent" id="dir_4913064_short">
        中文版自序<br/>
        · · · · · ·
    </div>
    <div class="indent" id="dir_4913064_full" style="display:none">
        中文版自序<br/>
        韩文版自序<br/>
        · 活着<br/>
        · · · · · ·     (<a href="javascript:$('#dir_4913064_full').hide();$('#dir_4913064_short').show();void(0);">收起</a>)
    </div>
</div>
</div>
</div>
</body>
</html>`

const tagHTML = `<html><body>
<ul class="subject-list">
  <li class="subject-item">
    <div class="pic"><a class="nbg" href="https://book.douban.com/subject/4913064/"><img src="s.jpg"/></a></div>
    <div class="info"><h2 class=""><a href="https://book.douban.com/subject/4913064/" title="活着">活着</a></h2></div>
  </li>
  <li class="subject-item">
    <div class="info"><h2><a href="" title="无链接">无链接</a></h2></div>
  </li>
  <li class="subject-item">
    <div class="info"><p>no heading</p></div>
  </li>
  <li class="subject-item">
    <div class="info"><h2><a href="https://book.douban.com/subject/1008145/" title="围城">围城</a></h2></div>
  </li>
</ul>
<div class="paginator">
  <span class="prev">&lt;前页</span>
  <span class="thispage" data-total-page="50">1</span>
  <a href="/tag/fiction?start=20&amp;type=T">2</a>
  <a href="/tag/fiction?start=40&amp;type=T">3</a>
  <span class="break">...</span>
  <a href="/tag/fiction?start=960&amp;type=T">49</a>
  <a href="/tag/fiction?start=980&amp;type=T">50</a>
  <span class="next"><a href="/tag/fiction?start=20&amp;type=T">后页&gt;</a></span>
</div>
</body></html>`

const rootHTML = `<html><body>
<div class="article">
  <div>
    <a name="文学" class="tag-title-wrapper"><h2>文学</h2></a>
    <table class="tagCol"><tbody>
      <tr><td><a href="/tag/小说">小说</a><b>(6000000)</b></td><td><a href="/tag/外国文学">外国文学</a></td></tr>
    </tbody></table>
  </div>
  <div>
    <table class="tagCol"><tbody>
      <tr><td><a href="/tag/漫画">漫画</a></td><td><a href="/tag/小说">小说</a></td><td><a>no href</a></td></tr>
    </tbody></table>
  </div>
  <a href="/tag/outside">outside</a>
</div>
</body></html>`

func makeResp(url, body string) *types.Response {
	return types.NewHTMLResponse(url, body)
}

func newTestExtractor() *Extractor {
	return NewExtractor(testLogger, nil)
}

package live

import "html/template"

type pageData struct {
	Title  string
	Markup template.HTML
	Path   string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
#binder-status { font: 12px monospace; color: #888; border-top: 1px solid #ddd; margin-top: 1em; padding-top: .5em; }
</style>
</head>
<body>
<div id="binder-root">{{.Markup}}</div>
<div id="binder-status">connecting</div>
<script>
(function () {
  const root = document.getElementById("binder-root");
  const status = document.getElementById("binder-status");
  const enc = new TextEncoder(), dec = new TextDecoder();
  const listening = new Set();
  const id = Math.random().toString(36).slice(2);
  const proto = location.protocol === "https:" ? "wss://" : "ws://";
  let ws;

  function reader(buf) {
    let pos = 1;
    return {
      uvarint() {
        let v = 0, shift = 0, b;
        do { b = buf[pos++]; v += (b & 0x7f) * Math.pow(2, shift); shift += 7; } while (b & 0x80);
        return v;
      },
      string() {
        const n = this.uvarint();
        const s = dec.decode(buf.subarray(pos, pos + n));
        pos += n;
        return s;
      }
    };
  }

  function uvarint(out, v) {
    while (v >= 0x80) { out.push((v % 0x80) | 0x80); v = Math.floor(v / 0x80); }
    out.push(v);
  }

  function str(out, s) {
    const b = enc.encode(s);
    uvarint(out, b.length);
    for (const x of b) out.push(x);
  }

  function path(el) {
    const p = [];
    while (el && el !== root) {
      const parent = el.parentElement;
      if (!parent) return null;
      p.unshift(Array.prototype.indexOf.call(parent.children, el));
      el = parent;
    }
    return el === root ? p : null;
  }

  function forward(ev) {
    if (!(ev.target instanceof Element)) return;
    const p = path(ev.target);
    if (p === null || !ws || ws.readyState !== 1) return;
    if (ev.type === "submit") ev.preventDefault();
    const out = [0x01];
    str(out, ev.type);
    uvarint(out, p.length);
    p.forEach(function (i) { uvarint(out, i); });
    str(out, ev.target.value !== undefined ? String(ev.target.value) : "");
    ws.send(new Uint8Array(out));
  }

  function onMessage(msg) {
    const buf = new Uint8Array(msg.data);
    const r = reader(buf);
    switch (buf[0]) {
    case 0x03: {
      const seq = r.uvarint();
      root.innerHTML = r.string();
      const n = r.uvarint();
      for (let i = 0; i < n; i++) {
        const type = r.string();
        if (!listening.has(type)) {
          listening.add(type);
          document.addEventListener(type, forward, true);
        }
      }
      status.textContent = "render #" + seq;
      break;
    }
    case 0x00:
      status.textContent = r.uvarint() + " patches";
      break;
    }
  }

  function connect() {
    ws = new WebSocket(proto + location.host + "{{.Path}}" + id);
    ws.binaryType = "arraybuffer";
    ws.onmessage = onMessage;
    ws.onopen = function () { status.textContent = "connected"; };
    ws.onclose = function () {
      status.textContent = "disconnected, retrying";
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`))

package api

var tmpl = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>YT-Facade</title>
    <style>
        :root { --bg: #121212; --card: #1e1e1e; --text: #e0e0e0; --accent: #ff4444; }
        body { background: var(--bg); color: var(--text); font-family: system-ui, sans-serif; display: grid; place-items: center; min-height: 100vh; margin: 0; }
        .container { background: var(--card); padding: 2rem; border-radius: 12px; box-shadow: 0 10px 30px rgba(0,0,0,0.5); width: 90%; max-width: 400px; text-align: center; }
        h1 { margin: 0 0 1rem; font-size: 1.5rem; color: var(--accent); }
        select { width: 100%; padding: 12px; margin: 0 0 10px; border: 1px solid #333; border-radius: 6px; background: #252525; color: #fff; }
        input { width: 100%; padding: 12px; margin: 10px 0; border: 1px solid #333; border-radius: 6px; background: #252525; color: #fff; box-sizing: border-box; outline: none; }
        input:focus { border-color: var(--accent); }
        button { width: 100%; padding: 12px; border: none; border-radius: 6px; background: var(--accent); color: white; font-weight: bold; cursor: pointer; transition: 0.2s; }
        button:hover { opacity: 0.9; }
        button:disabled { background: #555; cursor: not-allowed; }
        #result { margin-top: 20px; line-height: 1.6; word-break: break-word; }
        a { display: inline-block; margin: 5px; color: #4ea8de; text-decoration: none; border: 1px solid #4ea8de; padding: 5px 10px; border-radius: 4px; font-size: 0.9rem; }
        a:hover { background: #4ea8de; color: #fff; }
        .error { color: var(--accent); font-size: 0.9rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>YouTube Direct Link</h1>
        <form id="dlForm">
            <input type="text" id="url" placeholder="Paste YouTube URL or video ID..." required>
            <select id="res">
                <option>720p</option><option>480p</option><option>360p</option><option>240p</option><option>144p</option>
            </select>
            <button type="submit" id="btn">Get Direct Link</button>
        </form>
        <div id="result"></div>
    </div>

    <script>
        const f = document.getElementById('dlForm'), 
              r = document.getElementById('result'),
              b = document.getElementById('btn');

        f.onsubmit = async (e) => {
            e.preventDefault();
            b.disabled = true;
            r.textContent = 'Processing...';
            
            try {
                const v = document.getElementById('url').value.trim();
                const body = /^[\w-]{11}$/.test(v) ? {videoId: v} : {url: v};
                body.resolution = document.getElementById('res').value;
                const resp = await fetch('/get_download_url', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify(body)
                });
                const data = await resp.json();

                if (!data.success) throw new Error(data.error);
                const div = document.createElement('div');
                div.style = 'font-weight:bold;margin-bottom:10px';
                div.textContent = data.title + ' (' + data.resolution + ')';
                const a = document.createElement('a');
                a.href = data.download_url;
                a.target = '_blank';
                a.textContent = 'Direct Link';
                r.replaceChildren(div, a);

            } catch (err) {
                const e = document.createElement('div');
                e.className = 'error';
                e.textContent = err.message;
                r.replaceChildren(e);
            } finally {
                b.disabled = false;
            }
        };
    </script>
</body>
</html>
`
